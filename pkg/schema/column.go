package schema

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// Column is a column of a relation or an attribute of a composite type.
// Columns are ingested into their own collection keyed by
// [schema, relation, name]; the linker attaches them to their owning
// relation, foreign table or composite type. The owning object's name is a
// non-owning back-reference, never a live pointer.
type Column struct {
	ObjectBase

	Schema   string
	Relation string // local name of the owning relation or composite type
	Type     string
	NotNull  bool
	Default  string
	Number   int // ordinal position, 1-based
}

// Key implements Object.
func (c *Column) Key() Key { return Key{c.Schema, c.Relation, c.Name} }

// ObjectType implements Object.
func (c *Column) ObjectType() string { return "COLUMN" }

// Identifier implements Object.
func (c *Column) Identifier() string {
	return utils.QuoteQualified(c.Schema, c.Relation) + "." + utils.QuoteIdent(c.Name)
}

// SpecKey implements Object.
func (c *Column) SpecKey() string { return c.Name }

// AddClause returns the column definition fragment used inside CREATE
// statements and ADD COLUMN / ADD ATTRIBUTE clauses.
func (c *Column) AddClause() string {
	clause := utils.QuoteIdent(c.Name) + " " + c.Type
	if c.NotNull {
		clause += " NOT NULL"
	}
	if c.Default != "" {
		clause += " DEFAULT " + c.Default
	}
	return clause
}

// Create implements Object. Columns are created through their owning
// object's DDL, never on their own.
func (c *Column) Create() []string { return nil }

// Drop implements Object; see Create.
func (c *Column) Drop() []string { return nil }

// AlterDiff implements Object; attribute-level diffs are driven by the
// owning composite type.
func (c *Column) AlterDiff(desired Object) ([]string, error) { return nil, nil }

// typeChangeClause returns the ALTER ... TYPE fragment when the desired
// column's type differs, or "".
func (c *Column) typeChangeClause(want *Column, keyword string) string {
	if want.Type == "" || want.Type == c.Type {
		return ""
	}
	return fmt.Sprintf("ALTER %s %s TYPE %s", keyword, utils.QuoteIdent(c.Name), want.Type)
}

// ToSpec implements Object.
func (c *Column) ToSpec(opts SpecOptions) map[string]any {
	dct := map[string]any{"type": c.Type}
	if c.NotNull {
		dct["not_null"] = true
	}
	if c.Default != "" {
		dct["default"] = c.Default
	}
	if c.Description != "" {
		dct["description"] = c.Description
	}
	return map[string]any{c.Name: dct}
}

// columnsFromSpec builds the ordered column list declared under a relation
// or composite type. Each entry is a single-key map from column name to its
// definition.
func columnsFromSpec(schemaName, relName string, v any) ([]*Column, error) {
	entries, ok := v.([]any)
	if !ok || len(entries) == 0 {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q has no columns", relName)
	}
	cols := make([]*Column, 0, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok || len(m) != 1 {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: column %d must map a single name", relName, i+1)
		}
		for name, def := range m {
			col := &Column{
				Schema:   schemaName,
				Relation: relName,
				Number:   i + 1,
			}
			col.Name = name
			body, ok := def.(map[string]any)
			if !ok {
				return nil, errors.Wrapf(ErrMalformedSpec, "%q: column %q has no definition", relName, name)
			}
			if t, ok := body["type"].(string); ok {
				col.Type = t
			} else {
				return nil, errors.Wrapf(ErrMalformedSpec, "%q: column %q has no type", relName, name)
			}
			if nn, ok := body["not_null"].(bool); ok {
				col.NotNull = nn
			}
			if d, ok := body["default"]; ok {
				col.Default = fmt.Sprintf("%v", d)
			}
			if desc, ok := body["description"].(string); ok {
				col.Description = desc
			}
			if old, ok := body["oldname"].(string); ok {
				col.OldName = old
			}
			cols = append(cols, col)
		}
	}
	return cols, nil
}
