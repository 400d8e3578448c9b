package schema

import (
	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// Target codes for check constraints, mirroring pg_constraint.contypid
// being set for domain constraints.
const (
	ConstraintTargetDomain   = "d"
	ConstraintTargetRelation = "r"
)

// CheckConstraint is a CHECK constraint attached to a domain or a relation.
// Relation holds the local name of the owning object.
type CheckConstraint struct {
	ObjectBase

	Schema     string
	Relation   string
	Target     string // ConstraintTargetDomain or ConstraintTargetRelation
	Expression string
}

// Key implements Object.
func (c *CheckConstraint) Key() Key { return Key{c.Schema, c.Relation, c.Name} }

// ObjectType implements Object.
func (c *CheckConstraint) ObjectType() string { return "CONSTRAINT" }

// Identifier implements Object.
func (c *CheckConstraint) Identifier() string { return utils.QuoteIdent(c.Name) }

// SpecKey implements Object.
func (c *CheckConstraint) SpecKey() string { return c.Name }

// Clause returns the constraint fragment used inside CREATE DOMAIN and
// ALTER ... ADD CONSTRAINT statements.
func (c *CheckConstraint) Clause() string {
	return "CONSTRAINT " + utils.QuoteIdent(c.Name) + " CHECK (" + c.Expression + ")"
}

// Create implements Object; creation happens through the owning object.
func (c *CheckConstraint) Create() []string { return nil }

// Drop implements Object; see Create.
func (c *CheckConstraint) Drop() []string { return nil }

// AlterDiff implements Object.
func (c *CheckConstraint) AlterDiff(desired Object) ([]string, error) { return nil, nil }

// ToSpec implements Object.
func (c *CheckConstraint) ToSpec(opts SpecOptions) map[string]any {
	return map[string]any{"expression": c.Expression}
}

func checkConstraintsFromSpec(schemaName, relName, target string, v any) (map[string]*CheckConstraint, error) {
	body, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q: check_constraints must map names to definitions", relName)
	}
	checks := make(map[string]*CheckConstraint, len(body))
	for name, def := range body {
		m, ok := def.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: constraint %q has no definition", relName, name)
		}
		expr, ok := m["expression"].(string)
		if !ok || expr == "" {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: constraint %q has no expression", relName, name)
		}
		check := &CheckConstraint{
			Schema:     schemaName,
			Relation:   relName,
			Target:     target,
			Expression: expr,
		}
		check.Name = name
		checks[name] = check
	}
	return checks, nil
}
