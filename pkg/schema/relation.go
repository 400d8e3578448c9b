package schema

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// Relation kind codes from pg_class.relkind.
const (
	RelKindTable       = "r"
	RelKindView        = "v"
	RelKindMatView     = "m"
	RelKindSequence    = "S"
	RelKindForeign     = "f"
	RelKindComposite   = "c"
	RelKindPartitioned = "p"
)

var relKindTypes = map[string]string{
	RelKindTable:       "TABLE",
	RelKindView:        "VIEW",
	RelKindMatView:     "MATERIALIZED VIEW",
	RelKindSequence:    "SEQUENCE",
	RelKindForeign:     "FOREIGN TABLE",
	RelKindPartitioned: "TABLE",
}

// Relation is an ordinary relation: a table, view or sequence. Relations
// exist in the model chiefly so that functions returning SETOF of a table
// type can order the table's creation before their own; their reconciliation
// is limited to creation, renames and base attributes.
type Relation struct {
	ObjectBase

	Schema  string
	Kind    string
	Columns []*Column
}

// Key implements Object.
func (r *Relation) Key() Key { return Key{r.Schema, r.Name} }

// ObjectType implements Object.
func (r *Relation) ObjectType() string {
	if t, ok := relKindTypes[r.Kind]; ok {
		return t
	}
	return "TABLE"
}

// Identifier implements Object.
func (r *Relation) Identifier() string { return utils.QuoteQualified(r.Schema, r.Name) }

// SpecKey implements Object.
func (r *Relation) SpecKey() string {
	return strings.ToLower(r.ObjectType()) + " " + r.Name
}

// Create implements Object.
func (r *Relation) Create() []string {
	cols := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		cols[i] = "    " + col.AddClause()
	}
	stmt := utils.NewSQLBuilder().
		Create(r.ObjectType()).
		Raw(r.Identifier()).
		Rawf("(\n%s)", strings.Join(cols, ",\n")+"\n").
		String()
	return createSuffix(r, []string{stmt})
}

// Drop implements Object.
func (r *Relation) Drop() []string { return []string{dropSQL(r)} }

// AlterDiff implements Object.
func (r *Relation) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Relation)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a %s", desired.Identifier(), strings.ToLower(r.ObjectType()))
	}
	return baseAlterDiff(r, want), nil
}

// ToSpec implements Object.
func (r *Relation) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(r, opts)
	if len(r.Columns) > 0 {
		cols := make([]any, len(r.Columns))
		for i, col := range r.Columns {
			cols[i] = col.ToSpec(opts)
		}
		dct["columns"] = cols
	}
	return dct
}

func relationFromSpec(schemaName, kind, name string, v any) (*Relation, []*Column, error) {
	body, _ := v.(map[string]any)
	if body == nil {
		return nil, nil, errors.Wrapf(ErrMalformedSpec, "%s %q has no definition", kind, name)
	}
	rel := &Relation{Schema: schemaName, Kind: kind}
	rel.Name = name
	if err := baseFromSpec(&rel.ObjectBase, body); err != nil {
		return nil, nil, err
	}
	var cols []*Column
	if cv, ok := body["columns"]; ok {
		var err error
		if cols, err = columnsFromSpec(schemaName, name, cv); err != nil {
			return nil, nil, err
		}
	}
	return rel, cols, nil
}

// sortedNames returns map keys in lexical order, the order spec emission
// and constraint synthesis use for deterministic output.
func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
