package schema

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// systemSchemas exist in every database and are never created or dropped.
var systemSchemas = map[string]bool{
	"public":             true,
	"pg_catalog":         true,
	"information_schema": true,
	"pg_toast":           true,
}

// Schema is a namespace. Its members are ingested into their own
// collections; the linker attaches them here so specification emission can
// nest them under the schema.
type Schema struct {
	ObjectBase

	// populated by the linker, in collection order
	Types         []Type
	Procs         []Proc
	Relations     []*Relation
	ForeignTables []*ForeignTable
}

// Key implements Object.
func (s *Schema) Key() Key { return Key{s.Name} }

// ObjectType implements Object.
func (s *Schema) ObjectType() string { return "SCHEMA" }

// Identifier implements Object.
func (s *Schema) Identifier() string { return utils.QuoteIdent(s.Name) }

// SpecKey implements Object.
func (s *Schema) SpecKey() string { return "schema " + s.Name }

// Create implements Object.
func (s *Schema) Create() []string {
	stmt := utils.NewSQLBuilder().
		Create("SCHEMA").
		Name(s.Name).
		String()
	return createSuffix(s, []string{stmt})
}

// Drop implements Object.
func (s *Schema) Drop() []string { return []string{dropSQL(s)} }

// AlterDiff implements Object.
func (s *Schema) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Schema)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a schema", desired.Identifier())
	}
	return baseAlterDiff(s, want), nil
}

// ToSpec implements Object. Members appear under their own typed keys.
func (s *Schema) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(s, opts)
	for _, t := range s.Types {
		if !opts.excluded(t.typeBase().Name) {
			dct[t.SpecKey()] = t.ToSpec(opts)
		}
	}
	for _, p := range s.Procs {
		if !opts.excluded(p.procBase().Name) {
			dct[p.SpecKey()] = p.ToSpec(opts)
		}
	}
	for _, r := range s.Relations {
		if !opts.excluded(r.Name) {
			dct[r.SpecKey()] = r.ToSpec(opts)
		}
	}
	for _, ft := range s.ForeignTables {
		if !opts.excluded(ft.Name) {
			dct[ft.SpecKey()] = ft.ToSpec(opts)
		}
	}
	return dct
}

// schemaFromSpec builds the schema object itself; member routing is done
// by the catalog's ingestion.
func schemaFromSpec(name string, body map[string]any) (*Schema, error) {
	sch := &Schema{}
	sch.Name = name
	if err := baseFromSpec(&sch.ObjectBase, body); err != nil {
		return nil, err
	}
	return sch, nil
}

// memberPrefix splits a typed member key such as "function foo(int)" into
// its kind word and declaration. Multi-word kinds are matched longest
// first.
var memberPrefixes = []string{
	"materialized view ",
	"foreign table ",
	"domain ",
	"type ",
	"function ",
	"aggregate ",
	"table ",
	"view ",
	"sequence ",
}

func memberPrefix(key string) (kind, decl string, ok bool) {
	for _, prefix := range memberPrefixes {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimSpace(prefix), key[len(prefix):], true
		}
	}
	return "", "", false
}
