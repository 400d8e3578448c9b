package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/stewarddb/steward/pkg/schema"
)

// stubSource serves canned rows keyed by the FROM clause of each catalog
// query. Queries with no canned rows return nothing, like an empty database.
type stubSource struct {
	version int
	rows    map[string][]Row
	queries []string
}

func (s *stubSource) Version() int { return s.version }

func (s *stubSource) FetchRows(_ context.Context, query string) ([]Row, error) {
	s.queries = append(s.queries, query)
	for marker, rows := range s.rows {
		if strings.Contains(query, marker) {
			return rows, nil
		}
	}
	return nil, nil
}

func (s *stubSource) queried(marker string) string {
	for _, q := range s.queries {
		if strings.Contains(q, marker) {
			return q
		}
	}
	return ""
}

func TestIntrospectBuildsCatalog(t *testing.T) {
	src := &stubSource{
		version: 150004,
		rows: map[string][]Row{
			"FROM pg_namespace n": {
				{"name": "sd", "owner": "alice",
					"privileges":  "alice=UC/alice,=U/alice",
					"description": "application schema"},
			},
			"FROM pg_type t\n": {
				{"schema": "sd", "name": "posint", "kind": "d", "owner": "alice",
					"basetype": "integer", "not_null": true},
				{"schema": "sd", "name": "mood", "kind": "e", "owner": "alice"},
			},
			"FROM pg_enum e": {
				{"schema": "sd", "name": "mood", "label": "sad"},
				{"schema": "sd", "name": "mood", "label": "ok"},
				{"schema": "sd", "name": "mood", "label": "happy"},
			},
			"FROM pg_constraint con": {
				{"schema": "sd", "relation": "posint", "name": "posint_check",
					"definition": "CHECK (VALUE > 0)"},
			},
			"FROM pg_proc p": {
				{"schema": "sd", "name": "f1", "arguments": "", "returns": "integer",
					"owner": "alice", "language": "sql", "volatility": "v",
					"cost": float64(100), "source": "SELECT 1"},
			},
		},
	}

	cat, err := Introspect(context.Background(), src)
	require.NoError(t, err)

	sch, err := cat.Schemas.Get(schema.Key{"sd"})
	require.NoError(t, err)
	require.Equal(t, "alice", sch.Owner)
	require.Equal(t, []string{"alice=UC/alice", "=U/alice"}, sch.Privileges)
	require.Equal(t, "application schema", sch.Description)

	typ, err := cat.Types.Get(schema.Key{"sd", "mood"})
	require.NoError(t, err)
	require.Equal(t, []string{"sad", "ok", "happy"}, typ.(*schema.Enum).Labels)

	typ, err = cat.Types.Get(schema.Key{"sd", "posint"})
	require.NoError(t, err)
	dom := typ.(*schema.Domain)
	require.Equal(t, "integer", dom.Type)
	require.True(t, dom.NotNull)
	require.Equal(t, "VALUE > 0", dom.Checks["posint_check"].Expression)

	fn, err := cat.Procs.Get(schema.Key{"sd", "f1", ""})
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", fn.(*schema.Function).Source)
}

func TestIntrospectCFunction(t *testing.T) {
	src := &stubSource{
		version: 150004,
		rows: map[string][]Row{
			"FROM pg_namespace n": {{"name": "sd", "owner": "alice"}},
			"FROM pg_proc p": {
				{"schema": "sd", "name": "f2", "arguments": "", "returns": "integer",
					"owner": "alice", "language": "c", "volatility": "v",
					"cost": float64(1), "source": "f2_impl",
					"obj_file": "$libdir/f2"},
			},
		},
	}

	cat, err := Introspect(context.Background(), src)
	require.NoError(t, err)

	obj, err := cat.Procs.Get(schema.Key{"sd", "f2", ""})
	require.NoError(t, err)
	fn := obj.(*schema.Function)
	require.Equal(t, "$libdir/f2", fn.ObjFile)
	require.Equal(t, "f2_impl", fn.LinkSymbol)
	require.Empty(t, fn.Source)
}

func TestIntrospectUnclassifiableRows(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		row    Row
	}{
		{
			name:   "unknown type kind",
			marker: "FROM pg_type t\n",
			row:    Row{"schema": "sd", "name": "weird", "kind": "z"},
		},
		{
			name:   "unknown relation kind",
			marker: "FROM pg_class c\n",
			row:    Row{"schema": "sd", "name": "weird", "kind": "i"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{
				version: 150004,
				rows: map[string][]Row{
					"FROM pg_namespace n": {{"name": "sd", "owner": "alice"}},
					tt.marker:             {tt.row},
				},
			}
			_, err := Introspect(context.Background(), src)
			require.True(t, errors.Is(err, schema.ErrUnclassifiableRow))
		})
	}
}

func TestIntrospectVersionGates(t *testing.T) {
	t.Run("9.0", func(t *testing.T) {
		src := &stubSource{version: 90000}
		_, err := Introspect(context.Background(), src)
		require.NoError(t, err)

		require.Empty(t, src.queried("FROM pg_foreign_table"))
		require.Contains(t, src.queried("FROM pg_proc p"), "false AS leakproof")
		require.Contains(t, src.queried("FROM pg_proc p"), "NOT proisagg AND NOT proiswindow")
		require.Contains(t, src.queried("FROM pg_foreign_data_wrapper"), "NULL AS handler")
		require.NotContains(t, src.queried("FROM pg_namespace n"), "pg_depend")
	})

	t.Run("10", func(t *testing.T) {
		src := &stubSource{version: 100019}
		_, err := Introspect(context.Background(), src)
		require.NoError(t, err)

		require.NotEmpty(t, src.queried("FROM pg_foreign_table"))
		require.Contains(t, src.queried("FROM pg_proc p"), "proleakproof AS leakproof")
		require.Contains(t, src.queried("FROM pg_proc p"), "NOT proisagg AND NOT proiswindow")
		require.Contains(t, src.queried("FROM pg_namespace n"), "pg_depend")
	})

	t.Run("15", func(t *testing.T) {
		src := &stubSource{version: 150004}
		_, err := Introspect(context.Background(), src)
		require.NoError(t, err)

		require.Contains(t, src.queried("FROM pg_proc p"), "prokind = 'f'")
		require.Contains(t, src.queried("FROM pg_foreign_data_wrapper"), "fdwhandler::regproc")
	})
}
