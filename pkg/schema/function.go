package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// Volatility codes from pg_proc.provolatile.
var volatilityNames = map[string]string{
	"i": "IMMUTABLE",
	"s": "STABLE",
	"v": "VOLATILE",
}

type (
	// Proc is implemented by functions and aggregates. Both live in a
	// single collection keyed by [schema, name, arguments]: overloads
	// are distinct objects.
	Proc interface {
		Object

		procBase() *ProcBase
	}

	// ProcBase carries the identity shared by functions and aggregates.
	ProcBase struct {
		ObjectBase

		Schema    string
		Arguments string // normalized comma-separated argument types
	}
)

// Key implements Object.
func (p *ProcBase) Key() Key { return Key{p.Schema, p.Name, p.Arguments} }

// Identifier implements Object.
func (p *ProcBase) Identifier() string {
	return fmt.Sprintf("%s(%s)", utils.QuoteQualified(p.Schema, p.Name), p.Arguments)
}

func (p *ProcBase) procBase() *ProcBase { return p }

// Function is a scalar or set-returning function.
type Function struct {
	ProcBase

	Language        string
	Returns         string
	Source          string
	ObjFile         string
	LinkSymbol      string
	AllArgs         string
	Volatility      string // pg_proc.provolatile code
	Strict          bool
	SecurityDefiner bool
	Leakproof       bool
	Cost            float64
	Rows            float64
	Configuration   []string

	// supportOf is set by the linker when the function is a support
	// procedure of a base type; such functions are created and dropped
	// by the type's own synthesis.
	supportOf Key

	// depRelation is set by the linker when the function returns rows
	// of a table that is also being created.
	depRelation *Relation
}

// ObjectType implements Object.
func (f *Function) ObjectType() string { return "FUNCTION" }

// SpecKey implements Object.
func (f *Function) SpecKey() string {
	return fmt.Sprintf("function %s(%s)", f.Name, f.Arguments)
}

// SupportOf returns the key of the base type this function serves as a
// support procedure for, or nil.
func (f *Function) SupportOf() Key { return f.supportOf }

// defaultCost is what PostgreSQL assumes when no COST clause is given.
func (f *Function) defaultCost() float64 {
	if f.Language == "c" || f.Language == "internal" {
		return 1
	}
	return 100
}

// quotedSource renders the function body. C functions reference their
// object file and link symbol; everything else is dollar-quoted, with a
// plain $$ for internal functions whose body is just the symbol name.
func (f *Function) quotedSource() string {
	if f.ObjFile != "" {
		symbol := f.LinkSymbol
		if symbol == "" {
			symbol = f.Name
		}
		return utils.QuoteLiteral(f.ObjFile) + ", " + utils.QuoteLiteral(symbol)
	}
	if f.Language == "internal" {
		return "$$" + f.Source + "$$"
	}
	return "$_$" + f.Source + "$_$"
}

// createStatements renders the CREATE FUNCTION statement. Support
// procedures of a base type are only emitted when the owning type's
// synthesis asks for them.
func (f *Function) createStatements(forType bool) []string {
	if f.supportOf != nil && !forType {
		return nil
	}
	var stmts []string
	if f.depRelation != nil {
		stmts = append(stmts, f.depRelation.Create()...)
	}

	args := f.AllArgs
	if args == "" {
		args = f.Arguments
	}
	b := utils.NewSQLBuilder().
		Raw("CREATE FUNCTION").
		Rawf("%s(%s)", utils.QuoteQualified(f.Schema, f.Name), args).
		Rawf("RETURNS %s", f.Returns).
		Rawf("LANGUAGE %s", f.Language)
	if v := volatilityNames[f.Volatility]; v != "" && f.Volatility != "v" {
		b.Raw(v)
	}
	if f.Strict {
		b.Raw("STRICT")
	}
	if f.SecurityDefiner {
		b.Raw("SECURITY DEFINER")
	}
	if f.Leakproof {
		b.Raw("LEAKPROOF")
	}
	if f.Cost != 0 && f.Cost != f.defaultCost() {
		b.Rawf("COST %g", f.Cost)
	}
	if f.Rows != 0 && f.Rows != 1000 {
		b.Rawf("ROWS %g", f.Rows)
	}
	for _, cfg := range f.Configuration {
		b.Rawf("SET %s", cfg)
	}
	b.Rawf("AS %s", f.quotedSource())
	return createSuffix(f, append(stmts, b.String()))
}

// Create implements Object.
func (f *Function) Create() []string { return f.createStatements(false) }

// Drop implements Object.
func (f *Function) Drop() []string { return []string{dropSQL(f)} }

// AlterDiff implements Object. A changed body is handled with CREATE OR
// REPLACE rather than drop and recreate, preserving dependent objects.
func (f *Function) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Function)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a function", desired.Identifier())
	}
	var stmts []string
	if want.Source != "" && want.Source != f.Source {
		replaced := *want
		replaced.supportOf = nil
		replaced.depRelation = nil
		created := replaced.createStatements(false)
		if len(created) > 0 {
			stmts = append(stmts, "CREATE OR REPLACE "+strings.TrimPrefix(created[0], "CREATE "))
		}
	}
	if want.Leakproof != f.Leakproof {
		b := utils.NewSQLBuilder().Alter("FUNCTION").Raw(f.Identifier())
		if want.Leakproof {
			b.Raw("LEAKPROOF")
		} else {
			b.Raw("NOT LEAKPROOF")
		}
		stmts = append(stmts, b.String())
	}
	return append(stmts, baseAlterDiff(f, want)...), nil
}

// ToSpec implements Object.
func (f *Function) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(f, opts)
	dct["language"] = f.Language
	dct["returns"] = f.Returns
	if f.ObjFile != "" {
		dct["obj_file"] = f.ObjFile
		dct["link_symbol"] = f.LinkSymbol
	} else {
		dct["source"] = f.Source
	}
	if f.AllArgs != "" && f.AllArgs != f.Arguments {
		dct["allargs"] = f.AllArgs
	}
	if f.Volatility != "" && f.Volatility != "v" {
		dct["volatility"] = strings.ToLower(volatilityNames[f.Volatility])
	}
	if f.Strict {
		dct["strict"] = true
	}
	if f.SecurityDefiner {
		dct["security_definer"] = true
	}
	if f.Leakproof {
		dct["leakproof"] = true
	}
	if f.Cost != 0 && f.Cost != f.defaultCost() {
		dct["cost"] = f.Cost
	}
	if f.Rows != 0 && f.Rows != 1000 {
		dct["rows"] = f.Rows
	}
	if len(f.Configuration) > 0 {
		cfg := make([]any, len(f.Configuration))
		for i, c := range f.Configuration {
			cfg[i] = c
		}
		dct["configuration"] = cfg
	}
	return dct
}

// Aggregate is an aggregate function. Its language is always internal.
type Aggregate struct {
	ProcBase

	SFunc     string
	SType     string
	FinalFunc string
	InitCond  string
	SortOp    string
}

// ObjectType implements Object.
func (a *Aggregate) ObjectType() string { return "AGGREGATE" }

// SpecKey implements Object.
func (a *Aggregate) SpecKey() string {
	return fmt.Sprintf("aggregate %s(%s)", a.Name, a.Arguments)
}

// Create implements Object.
func (a *Aggregate) Create() []string {
	clauses := []string{
		"SFUNC = " + a.SFunc,
		"STYPE = " + a.SType,
	}
	if a.FinalFunc != "" {
		clauses = append(clauses, "FINALFUNC = "+a.FinalFunc)
	}
	if a.InitCond != "" {
		clauses = append(clauses, "INITCOND = "+utils.QuoteLiteral(a.InitCond))
	}
	if a.SortOp != "" {
		clauses = append(clauses, "SORTOP = "+a.SortOp)
	}
	stmt := fmt.Sprintf("CREATE AGGREGATE %s (\n    %s)",
		a.Identifier(), strings.Join(clauses, ",\n    "))
	return createSuffix(a, []string{stmt})
}

// Drop implements Object.
func (a *Aggregate) Drop() []string { return []string{dropSQL(a)} }

// AlterDiff implements Object.
func (a *Aggregate) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Aggregate)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not an aggregate", desired.Identifier())
	}
	return baseAlterDiff(a, want), nil
}

// ToSpec implements Object.
func (a *Aggregate) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(a, opts)
	dct["sfunc"] = a.SFunc
	dct["stype"] = a.SType
	if a.FinalFunc != "" {
		dct["finalfunc"] = a.FinalFunc
	}
	if a.InitCond != "" {
		dct["initcond"] = a.InitCond
	}
	if a.SortOp != "" {
		dct["sortop"] = a.SortOp
	}
	return dct
}

// parseProcKey splits a "name(arguments)" spec key.
func parseProcKey(decl string) (name, args string, err error) {
	open := strings.Index(decl, "(")
	if open < 0 || !strings.HasSuffix(decl, ")") {
		return "", "", errors.Wrapf(ErrMalformedSpec, "%q must be declared as name(arguments)", decl)
	}
	return decl[:open], decl[open+1 : len(decl)-1], nil
}

func functionFromSpec(schemaName, decl string, v any) (*Function, error) {
	name, args, err := parseProcKey(decl)
	if err != nil {
		return nil, err
	}
	body, _ := v.(map[string]any)
	if body == nil {
		return nil, errors.Wrapf(ErrMalformedSpec, "function %q has no definition", decl)
	}
	fn := &Function{ProcBase: ProcBase{Schema: schemaName, Arguments: args}}
	fn.Name = name
	if err := baseFromSpec(&fn.ObjectBase, body); err != nil {
		return nil, err
	}
	fn.Language, _ = body["language"].(string)
	fn.Returns, _ = body["returns"].(string)
	if fn.Language == "" || fn.Returns == "" {
		return nil, errors.Wrapf(ErrMalformedSpec, "function %q needs language and returns", decl)
	}
	fn.Source, _ = body["source"].(string)
	fn.ObjFile, _ = body["obj_file"].(string)
	if (fn.Source == "") == (fn.ObjFile == "") {
		return nil, errors.Wrapf(ErrMalformedSpec, "function %q needs exactly one of source and obj_file", decl)
	}
	fn.LinkSymbol, _ = body["link_symbol"].(string)
	fn.AllArgs, _ = body["allargs"].(string)
	if v, ok := body["volatility"].(string); ok && v != "" {
		fn.Volatility = strings.ToLower(v[:1])
		if volatilityNames[fn.Volatility] == "" {
			return nil, errors.Wrapf(ErrMalformedSpec, "function %q: bad volatility %q", decl, v)
		}
	}
	if b, ok := body["strict"].(bool); ok {
		fn.Strict = b
	}
	if b, ok := body["security_definer"].(bool); ok {
		fn.SecurityDefiner = b
	}
	if b, ok := body["leakproof"].(bool); ok {
		fn.Leakproof = b
	}
	fn.Cost = floatFromSpec(body["cost"])
	fn.Rows = floatFromSpec(body["rows"])
	if cv, ok := body["configuration"].([]any); ok {
		for _, c := range cv {
			if s, ok := c.(string); ok {
				fn.Configuration = append(fn.Configuration, s)
			}
		}
	}
	return fn, nil
}

func aggregateFromSpec(schemaName, decl string, v any) (*Aggregate, error) {
	name, args, err := parseProcKey(decl)
	if err != nil {
		return nil, err
	}
	body, _ := v.(map[string]any)
	if body == nil {
		return nil, errors.Wrapf(ErrMalformedSpec, "aggregate %q has no definition", decl)
	}
	agg := &Aggregate{ProcBase: ProcBase{Schema: schemaName, Arguments: args}}
	agg.Name = name
	if err := baseFromSpec(&agg.ObjectBase, body); err != nil {
		return nil, err
	}
	agg.SFunc, _ = body["sfunc"].(string)
	agg.SType, _ = body["stype"].(string)
	if agg.SFunc == "" || agg.SType == "" {
		return nil, errors.Wrapf(ErrMalformedSpec, "aggregate %q needs sfunc and stype", decl)
	}
	agg.FinalFunc, _ = body["finalfunc"].(string)
	agg.InitCond = stringFromSpec(body["initcond"])
	agg.SortOp, _ = body["sortop"].(string)
	return agg, nil
}

func floatFromSpec(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func stringFromSpec(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
