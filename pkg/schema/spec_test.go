package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustCatalog(t *testing.T, doc map[string]any) *Catalog {
	t.Helper()
	cat, err := FromSpec(doc)
	require.NoError(t, err)
	return cat
}

func TestFromSpecClassifiesTypes(t *testing.T) {
	cat := mustCatalog(t, map[string]any{
		"schema sd": map[string]any{
			"type mood": map[string]any{
				"labels": []any{"sad", "ok", "happy"},
			},
			"type pair": map[string]any{
				"attributes": []any{
					map[string]any{"x": map[string]any{"type": "integer"}},
					map[string]any{"y": map[string]any{"type": "integer"}},
				},
			},
			"type inet2": map[string]any{
				"input":          "inet2in",
				"output":         "inet2out",
				"internallength": "variable",
			},
			"function inet2in(cstring)": map[string]any{
				"language": "internal", "returns": "sd.inet2", "source": "inet_in",
			},
			"function inet2out(sd.inet2)": map[string]any{
				"language": "internal", "returns": "cstring", "source": "inet_out",
			},
			"domain posint": map[string]any{
				"type": "integer",
				"check_constraints": map[string]any{
					"posint_check": map[string]any{"expression": "VALUE > 0"},
				},
			},
		},
	})

	enum, err := cat.Types.Get(Key{"sd", "mood"})
	require.NoError(t, err)
	require.IsType(t, &Enum{}, enum)
	require.Equal(t, []string{"sad", "ok", "happy"}, enum.(*Enum).Labels)

	comp, err := cat.Types.Get(Key{"sd", "pair"})
	require.NoError(t, err)
	require.IsType(t, &Composite{}, comp)
	require.Len(t, comp.(*Composite).Attributes, 2)

	base, err := cat.Types.Get(Key{"sd", "inet2"})
	require.NoError(t, err)
	require.IsType(t, &BaseType{}, base)
	require.Equal(t, -1, base.(*BaseType).InternalLength)

	dom, err := cat.Types.Get(Key{"sd", "posint"})
	require.NoError(t, err)
	require.IsType(t, &Domain{}, dom)
	require.Equal(t, "VALUE > 0", dom.(*Domain).Checks["posint_check"].Expression)
}

func TestFromSpecMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{
			name: "unknown top-level key",
			doc:  map[string]any{"tables": map[string]any{}},
		},
		{
			name: "unknown member key",
			doc: map[string]any{
				"schema sd": map[string]any{"trigger t1": map[string]any{}},
			},
		},
		{
			name: "type with empty body",
			doc: map[string]any{
				"schema sd": map[string]any{"type t1": nil},
			},
		},
		{
			name: "enum with empty labels",
			doc: map[string]any{
				"schema sd": map[string]any{
					"type mood": map[string]any{"labels": []any{}},
				},
			},
		},
		{
			name: "domain without underlying type",
			doc: map[string]any{
				"schema sd": map[string]any{"domain d1": map[string]any{"not_null": true}},
			},
		},
		{
			name: "domain declaring labels",
			doc: map[string]any{
				"schema sd": map[string]any{
					"domain d1": map[string]any{"labels": []any{"a"}},
				},
			},
		},
		{
			name: "function without language",
			doc: map[string]any{
				"schema sd": map[string]any{
					"function f1()": map[string]any{"returns": "integer", "source": "x"},
				},
			},
		},
		{
			name: "function with source and obj_file",
			doc: map[string]any{
				"schema sd": map[string]any{
					"function f1()": map[string]any{
						"language": "sql",
						"returns":  "integer",
						"source":   "SELECT 1",
						"obj_file": "/usr/lib/f.so",
					},
				},
			},
		},
		{
			name: "function without signature parens",
			doc: map[string]any{
				"schema sd": map[string]any{
					"function f1": map[string]any{"language": "sql", "returns": "integer", "source": "SELECT 1"},
				},
			},
		},
		{
			name: "aggregate without sfunc",
			doc: map[string]any{
				"schema sd": map[string]any{
					"aggregate a1(integer)": map[string]any{"stype": "integer"},
				},
			},
		},
		{
			name: "foreign table without server",
			doc: map[string]any{
				"schema sd": map[string]any{
					"foreign table ft1": map[string]any{
						"columns": []any{map[string]any{"c1": map[string]any{"type": "text"}}},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSpec(tt.doc)
			require.ErrorIs(t, err, ErrMalformedSpec)
		})
	}
}

func TestLinkResolvesSupportProcs(t *testing.T) {
	cat := mustCatalog(t, map[string]any{
		"schema sd": map[string]any{
			"type inet2": map[string]any{
				"input":      "inet2in",
				"output":     "inet2out",
				"typmod_in":  "inet2typmodin",
				"typmod_out": "inet2typmodout",
			},
			"function inet2in(cstring, oid, integer)": map[string]any{
				"language": "internal", "returns": "sd.inet2", "source": "inet_in", "strict": true,
			},
			"function inet2out(sd.inet2)": map[string]any{
				"language": "internal", "returns": "cstring", "source": "inet_out", "strict": true,
			},
			"function inet2typmodin(cstring[])": map[string]any{
				"language": "internal", "returns": "integer", "source": "inet_typmodin",
			},
			"function inet2typmodout(integer)": map[string]any{
				"language": "internal", "returns": "cstring", "source": "inet_typmodout",
			},
		},
	})

	base, err := cat.Types.Get(Key{"sd", "inet2"})
	require.NoError(t, err)
	bt := base.(*BaseType)

	// the three-argument input form is found after the bare cstring form misses
	require.NotNil(t, bt.deps["input"])
	require.Equal(t, "cstring, oid, integer", bt.deps["input"].Arguments)
	require.Equal(t, "cstring[]", bt.deps["typmod_in"].Arguments)
	require.Equal(t, "integer", bt.deps["typmod_out"].Arguments)

	// support procedures are owned by the type, not created independently
	require.Equal(t, Key{"sd", "inet2"}, bt.deps["input"].SupportOf())
	require.Empty(t, bt.deps["input"].Create())
}

func TestLinkUnresolvedSupportProc(t *testing.T) {
	_, err := FromSpec(map[string]any{
		"schema sd": map[string]any{
			"type inet2": map[string]any{
				"input":  "inet2in",
				"output": "inet2out",
			},
			"function inet2out(sd.inet2)": map[string]any{
				"language": "internal", "returns": "cstring", "source": "inet_out",
			},
		},
	})
	require.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestLinkUnknownLanguage(t *testing.T) {
	_, err := FromSpec(map[string]any{
		"schema sd": map[string]any{
			"function f1()": map[string]any{
				"language": "plperl", "returns": "integer", "source": "1;",
			},
		},
	})
	require.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestLinkServerNeedsWrapper(t *testing.T) {
	cat := NewCatalog()
	srv := &ForeignServer{Wrapper: "nosuch"}
	srv.Name = "srv1"
	require.NoError(t, cat.Servers.Put(srv))

	require.ErrorIs(t, cat.Link(), ErrUnresolvedReference)
}

func TestFromSpecForeignLayer(t *testing.T) {
	cat := mustCatalog(t, map[string]any{
		"foreign data wrapper pgsql": map[string]any{
			"validator": "postgresql_fdw_validator",
			"server remote": map[string]any{
				"options": []any{"host=db.example.com", "port=5432"},
				"user mapping for PUBLIC": map[string]any{
					"options": []any{"user=guest"},
				},
			},
		},
		"schema sd": map[string]any{
			"foreign table ft1": map[string]any{
				"server": "remote",
				"columns": []any{
					map[string]any{"c1": map[string]any{"type": "text"}},
				},
			},
		},
	})

	fdw, err := cat.Wrappers.Get(Key{"pgsql"})
	require.NoError(t, err)
	require.Len(t, fdw.Servers, 1)
	require.Equal(t, "remote", fdw.Servers[0].Name)
	require.Len(t, fdw.Servers[0].Mappings, 1)
	require.Equal(t, "PUBLIC", fdw.Servers[0].Mappings[0].Name)

	ft, err := cat.ForeignTables.Get(Key{"sd", "ft1"})
	require.NoError(t, err)
	require.Len(t, ft.Columns, 1)
}

func TestToSpecRoundTrip(t *testing.T) {
	doc := map[string]any{
		"schema sd": map[string]any{
			"owner":       "alice",
			"description": "sandbox",
			"domain posint": map[string]any{
				"type":     "integer",
				"not_null": true,
				"check_constraints": map[string]any{
					"posint_check": map[string]any{"expression": "VALUE > 0"},
				},
			},
			"type mood": map[string]any{"labels": []any{"sad", "happy"}},
			"function f1()": map[string]any{
				"language": "sql", "returns": "integer", "source": "SELECT 1",
				"volatility": "immutable", "strict": true,
			},
		},
		"language plpgsql": map[string]any{"trusted": true},
	}

	cat := mustCatalog(t, doc)
	back := mustCatalog(t, cat.ToSpec(SpecOptions{}))

	_, err := GeneratePlan(cat, back)
	require.ErrorIs(t, err, ErrNoDiff)
}

func TestToSpecOptions(t *testing.T) {
	cat := mustCatalog(t, map[string]any{
		"schema sd": map[string]any{
			"owner":      "alice",
			"privileges": []any{map[string]any{"bob": []any{"usage"}}},
			"domain d1":  map[string]any{"type": "integer", "owner": "alice"},
			"domain d2":  map[string]any{"type": "text"},
		},
	})

	doc := cat.ToSpec(SpecOptions{
		ExcludeOwner:      true,
		ExcludePrivileges: true,
		ExcludedNames:     []string{"d2"},
	})

	body := doc["schema sd"].(map[string]any)
	require.NotContains(t, body, "owner")
	require.NotContains(t, body, "privileges")
	require.Contains(t, body, "domain d1")
	require.NotContains(t, body, "domain d2")
	require.NotContains(t, body["domain d1"].(map[string]any), "owner")
}
