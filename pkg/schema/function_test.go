package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newFunction(name, args string) *Function {
	f := &Function{Language: "sql", Returns: "integer", Source: "SELECT 1"}
	f.Schema = "sd"
	f.Name = name
	f.Arguments = args
	return f
}

func TestFunctionCreate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Function)
		expected string
	}{
		{
			name:     "defaults omitted",
			mutate:   func(f *Function) {},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE sql AS $_$SELECT 1$_$",
		},
		{
			name: "volatility and strict",
			mutate: func(f *Function) {
				f.Volatility = "i"
				f.Strict = true
			},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE sql IMMUTABLE STRICT AS $_$SELECT 1$_$",
		},
		{
			name:     "volatile keyword omitted",
			mutate:   func(f *Function) { f.Volatility = "v" },
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE sql AS $_$SELECT 1$_$",
		},
		{
			name:     "non-default cost",
			mutate:   func(f *Function) { f.Cost = 50 },
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE sql COST 50 AS $_$SELECT 1$_$",
		},
		{
			name:     "default cost omitted",
			mutate:   func(f *Function) { f.Cost = 100 },
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE sql AS $_$SELECT 1$_$",
		},
		{
			name: "default rows omitted",
			mutate: func(f *Function) {
				f.Returns = "SETOF integer"
				f.Rows = 1000
			},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS SETOF integer LANGUAGE sql AS $_$SELECT 1$_$",
		},
		{
			name: "internal language dollar quoting",
			mutate: func(f *Function) {
				f.Language = "internal"
				f.Source = "lower"
			},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE internal AS $$lower$$",
		},
		{
			name: "internal default cost is one",
			mutate: func(f *Function) {
				f.Language = "internal"
				f.Source = "lower"
				f.Cost = 1
			},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE internal AS $$lower$$",
		},
		{
			name: "c function references object file",
			mutate: func(f *Function) {
				f.Language = "c"
				f.Source = ""
				f.ObjFile = "/usr/lib/postgresql/f1.so"
				f.LinkSymbol = "f1_impl"
			},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE c AS '/usr/lib/postgresql/f1.so', 'f1_impl'",
		},
		{
			name: "security definer with configuration",
			mutate: func(f *Function) {
				f.SecurityDefiner = true
				f.Configuration = []string{"search_path TO sd, public"}
			},
			expected: "CREATE FUNCTION sd.f1(integer) RETURNS integer LANGUAGE sql SECURITY DEFINER SET search_path TO sd, public AS $_$SELECT 1$_$",
		},
		{
			name: "default argument names",
			mutate: func(f *Function) {
				f.AllArgs = "x integer DEFAULT 0"
			},
			expected: "CREATE FUNCTION sd.f1(x integer DEFAULT 0) RETURNS integer LANGUAGE sql AS $_$SELECT 1$_$",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFunction("f1", "integer")
			tt.mutate(f)
			require.Equal(t, []string{tt.expected}, f.Create())
		})
	}
}

func TestFunctionAlterDiffReplacesSource(t *testing.T) {
	cur := newFunction("f1", "")
	want := newFunction("f1", "")
	want.Source = "SELECT 2"

	stmts, err := cur.AlterDiff(want)
	require.NoError(t, err)
	require.Equal(t, []string{
		"CREATE OR REPLACE FUNCTION sd.f1() RETURNS integer LANGUAGE sql AS $_$SELECT 2$_$",
	}, stmts)
}

func TestFunctionAlterDiffLeakproof(t *testing.T) {
	cur := newFunction("f1", "")
	want := newFunction("f1", "")
	want.Leakproof = true

	stmts, err := cur.AlterDiff(want)
	require.NoError(t, err)
	require.Equal(t, []string{"ALTER FUNCTION sd.f1() LEAKPROOF"}, stmts)
}

func TestFunctionCreatesDependentTable(t *testing.T) {
	cat := mustCatalog(t, map[string]any{
		"schema sd": map[string]any{
			"table t1": map[string]any{
				"columns": []any{
					map[string]any{"c1": map[string]any{"type": "integer"}},
				},
			},
			"function f1()": map[string]any{
				"language": "sql",
				"returns":  "SETOF sd.t1",
				"source":   "SELECT * FROM sd.t1",
			},
		},
	})

	p, err := cat.Procs.Get(Key{"sd", "f1", ""})
	require.NoError(t, err)

	stmts := p.Create()
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "CREATE TABLE sd.t1")
	require.Contains(t, stmts[1], "CREATE FUNCTION sd.f1()")
}

func newAggregate() *Aggregate {
	a := &Aggregate{SFunc: "int4pl", SType: "integer"}
	a.Schema = "sd"
	a.Name = "a1"
	a.Arguments = "integer"
	return a
}

func TestAggregateCreate(t *testing.T) {
	a := newAggregate()
	a.FinalFunc = "int4out"
	a.InitCond = "0"
	a.SortOp = "<"

	stmts := a.Create()
	require.Equal(t, []string{
		"CREATE AGGREGATE sd.a1(integer) (\n    SFUNC = int4pl,\n    STYPE = integer,\n    FINALFUNC = int4out,\n    INITCOND = '0',\n    SORTOP = <)",
	}, stmts)
}

func TestAggregateSpecKey(t *testing.T) {
	require.Equal(t, "aggregate a1(integer)", newAggregate().SpecKey())
}
