package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// Type kind codes from pg_type.typtype.
const (
	TypeKindBase      = "b"
	TypeKindComposite = "c"
	TypeKindDomain    = "d"
	TypeKindEnum      = "e"
)

// AlignmentNames maps pg_type.typalign codes to the keywords accepted by
// CREATE TYPE's ALIGNMENT clause.
var AlignmentNames = map[string]string{
	"c": "char",
	"s": "int2",
	"i": "int4",
	"d": "double",
}

// StorageNames maps pg_type.typstorage codes to the keywords accepted by
// CREATE TYPE's STORAGE clause.
var StorageNames = map[string]string{
	"p": "plain",
	"e": "external",
	"m": "main",
	"x": "extended",
}

type (
	// Type is implemented by every type variant: base types, composite
	// types, domains and enums. All variants live in a single collection
	// keyed by [schema, name]; PostgreSQL itself enforces that namespace.
	Type interface {
		Object

		typeBase() *TypeBase
	}

	// TypeBase carries the identity shared by all type variants.
	TypeBase struct {
		ObjectBase

		Schema string
	}
)

// Key implements Object.
func (t *TypeBase) Key() Key { return Key{t.Schema, t.Name} }

// ObjectType implements Object.
func (t *TypeBase) ObjectType() string { return "TYPE" }

// Identifier implements Object.
func (t *TypeBase) Identifier() string { return utils.QuoteQualified(t.Schema, t.Name) }

// SpecKey implements Object.
func (t *TypeBase) SpecKey() string { return "type " + t.Name }

func (t *TypeBase) typeBase() *TypeBase { return t }

// Domain is a constrained alias over an underlying type.
type Domain struct {
	TypeBase

	Type    string
	NotNull bool
	Default string
	Checks  map[string]*CheckConstraint
}

// ObjectType implements Object.
func (d *Domain) ObjectType() string { return "DOMAIN" }

// SpecKey implements Object.
func (d *Domain) SpecKey() string { return "domain " + d.Name }

// Create implements Object.
func (d *Domain) Create() []string {
	b := utils.NewSQLBuilder().
		Create("DOMAIN").
		Raw(d.Identifier()).
		Rawf("AS %s", d.Type)
	if d.NotNull {
		b.Raw("NOT NULL")
	}
	if d.Default != "" {
		b.Rawf("DEFAULT %s", d.Default)
	}
	for _, name := range sortedNames(d.Checks) {
		b.Raw(d.Checks[name].Clause())
	}
	return createSuffix(d, []string{b.String()})
}

// Drop implements Object.
func (d *Domain) Drop() []string { return []string{dropSQL(d)} }

// AlterDiff implements Object.
func (d *Domain) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Domain)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a domain", desired.Identifier())
	}
	var stmts []string
	if want.Default != d.Default {
		b := utils.NewSQLBuilder().Alter("DOMAIN").Raw(d.Identifier())
		if want.Default == "" {
			b.Raw("DROP DEFAULT")
		} else {
			b.Rawf("SET DEFAULT %s", want.Default)
		}
		stmts = append(stmts, b.String())
	}
	if want.NotNull != d.NotNull {
		b := utils.NewSQLBuilder().Alter("DOMAIN").Raw(d.Identifier())
		if want.NotNull {
			b.Raw("SET NOT NULL")
		} else {
			b.Raw("DROP NOT NULL")
		}
		stmts = append(stmts, b.String())
	}
	for _, name := range sortedNames(d.Checks) {
		if _, ok := want.Checks[name]; !ok {
			stmts = append(stmts, utils.NewSQLBuilder().
				Alter("DOMAIN").
				Raw(d.Identifier()).
				Rawf("DROP CONSTRAINT %s", utils.QuoteIdent(name)).
				String())
		}
	}
	for _, name := range sortedNames(want.Checks) {
		if _, ok := d.Checks[name]; !ok {
			stmts = append(stmts, utils.NewSQLBuilder().
				Alter("DOMAIN").
				Raw(d.Identifier()).
				Rawf("ADD %s", want.Checks[name].Clause()).
				String())
		}
	}
	return append(stmts, baseAlterDiff(d, want)...), nil
}

// ToSpec implements Object.
func (d *Domain) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(d, opts)
	dct["type"] = d.Type
	if d.NotNull {
		dct["not_null"] = true
	}
	if d.Default != "" {
		dct["default"] = d.Default
	}
	if len(d.Checks) > 0 {
		checks := map[string]any{}
		for name, check := range d.Checks {
			checks[name] = check.ToSpec(opts)
		}
		dct["check_constraints"] = checks
	}
	return dct
}

// Enum is a labeled enumeration type.
type Enum struct {
	TypeBase

	Labels []string
}

// Create implements Object.
func (e *Enum) Create() []string {
	quoted := make([]string, len(e.Labels))
	for i, label := range e.Labels {
		quoted[i] = utils.QuoteLiteral(label)
	}
	stmt := utils.NewSQLBuilder().
		Create("TYPE").
		Raw(e.Identifier()).
		Rawf("AS ENUM (%s)", strings.Join(quoted, ", ")).
		String()
	return createSuffix(e, []string{stmt})
}

// Drop implements Object.
func (e *Enum) Drop() []string { return []string{dropSQL(e)} }

// AlterDiff implements Object. New labels are added in place; PostgreSQL
// has no primitive to remove or reorder existing labels, so those changes
// are not emitted.
func (e *Enum) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Enum)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not an enum", desired.Identifier())
	}
	have := make(map[string]bool, len(e.Labels))
	for _, label := range e.Labels {
		have[label] = true
	}
	var stmts []string
	for i, label := range want.Labels {
		if have[label] {
			continue
		}
		b := utils.NewSQLBuilder().
			Alter("TYPE").
			Raw(e.Identifier()).
			Rawf("ADD VALUE %s", utils.QuoteLiteral(label))
		for _, next := range want.Labels[i+1:] {
			if have[next] {
				b.Rawf("BEFORE %s", utils.QuoteLiteral(next))
				break
			}
		}
		stmts = append(stmts, b.String())
	}
	return append(stmts, baseAlterDiff(e, want)...), nil
}

// ToSpec implements Object.
func (e *Enum) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(e, opts)
	labels := make([]any, len(e.Labels))
	for i, label := range e.Labels {
		labels[i] = label
	}
	dct["labels"] = labels
	return dct
}

// Composite is a standalone composite type.
type Composite struct {
	TypeBase

	Attributes []*Column
}

// Create implements Object.
func (c *Composite) Create() []string {
	attrs := make([]string, len(c.Attributes))
	for i, attr := range c.Attributes {
		attrs[i] = utils.QuoteIdent(attr.Name) + " " + attr.Type
	}
	stmt := utils.NewSQLBuilder().
		Create("TYPE").
		Raw(c.Identifier()).
		Rawf("AS (%s)", strings.Join(attrs, ", ")).
		String()
	return createSuffix(c, []string{stmt})
}

// Drop implements Object.
func (c *Composite) Drop() []string { return []string{dropSQL(c)} }

// AlterDiff implements Object. Attributes are matched by name, honoring
// oldname on the desired side for renames.
func (c *Composite) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Composite)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a composite type", desired.Identifier())
	}

	current := make(map[string]*Column, len(c.Attributes))
	for _, attr := range c.Attributes {
		current[attr.Name] = attr
	}
	matched := map[string]bool{}

	var stmts []string
	alter := func(clause string) {
		stmts = append(stmts, utils.NewSQLBuilder().
			Alter("TYPE").
			Raw(c.Identifier()).
			Raw(clause).
			String())
	}
	for _, attr := range want.Attributes {
		cur, ok := current[attr.Name]
		if !ok && attr.OldName != "" {
			if cur, ok = current[attr.OldName]; ok {
				alter(fmt.Sprintf("RENAME ATTRIBUTE %s TO %s",
					utils.QuoteIdent(attr.OldName), utils.QuoteIdent(attr.Name)))
				matched[attr.OldName] = true
			}
		}
		if !ok {
			alter(fmt.Sprintf("ADD ATTRIBUTE %s %s", utils.QuoteIdent(attr.Name), attr.Type))
			continue
		}
		matched[cur.Name] = true
		if clause := cur.typeChangeClause(attr, "ATTRIBUTE"); clause != "" {
			alter(clause)
		}
	}
	for _, attr := range c.Attributes {
		if !matched[attr.Name] {
			alter("DROP ATTRIBUTE " + utils.QuoteIdent(attr.Name))
		}
	}
	return append(stmts, baseAlterDiff(c, want)...), nil
}

// ToSpec implements Object.
func (c *Composite) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(c, opts)
	attrs := make([]any, len(c.Attributes))
	for i, attr := range c.Attributes {
		attrs[i] = attr.ToSpec(opts)
	}
	dct["attributes"] = attrs
	return dct
}

// supportRoles lists the input/output procedure slots of a base type in
// clause order. The roles after output are optional.
var supportRoles = []string{
	"input", "output", "receive", "send", "typmod_in", "typmod_out", "analyze",
}

// BaseType is a scalar type defined by its input/output support procedures.
type BaseType struct {
	TypeBase

	Input          string
	Output         string
	Receive        string
	Send           string
	TypmodIn       string
	TypmodOut      string
	Analyze        string
	InternalLength int // -1 means variable length
	Alignment      string
	Storage        string
	Delimiter      string
	Category       string
	Preferred      bool

	// deps maps a support role to its resolved procedure; populated by
	// the linker.
	deps map[string]*Function
}

// supportName returns the spec'd procedure name for a role, or "".
func (t *BaseType) supportName(role string) string {
	switch role {
	case "input":
		return t.Input
	case "output":
		return t.Output
	case "receive":
		return t.Receive
	case "send":
		return t.Send
	case "typmod_in":
		return t.TypmodIn
	case "typmod_out":
		return t.TypmodOut
	case "analyze":
		return t.Analyze
	}
	return ""
}

// supportArguments returns the candidate argument lists a support
// procedure of the given role may carry. Input procedures accept either
// the bare cstring form or the typmod-aware three-argument form.
func (t *BaseType) supportArguments(role string) []string {
	switch role {
	case "input":
		return []string{"cstring", "cstring, oid, integer"}
	case "output", "send":
		return []string{t.Identifier()}
	case "receive", "analyze":
		return []string{"internal"}
	case "typmod_in":
		return []string{"cstring[]"}
	case "typmod_out":
		return []string{"integer"}
	}
	return nil
}

// Create implements Object. The type is first created as a shell so the
// support procedures can reference it, then the procedures, then the full
// definition.
func (t *BaseType) Create() []string {
	stmts := []string{fmt.Sprintf("CREATE TYPE %s", t.Identifier())}
	for _, role := range supportRoles {
		if fn := t.deps[role]; fn != nil {
			stmts = append(stmts, fn.createStatements(true)...)
		}
	}

	clauses := []string{
		"INPUT = " + t.Input,
		"OUTPUT = " + t.Output,
	}
	optional := []struct{ clause, value string }{
		{"RECEIVE", t.Receive},
		{"SEND", t.Send},
		{"TYPMOD_IN", t.TypmodIn},
		{"TYPMOD_OUT", t.TypmodOut},
		{"ANALYZE", t.Analyze},
	}
	for _, opt := range optional {
		if opt.value != "" {
			clauses = append(clauses, opt.clause+" = "+opt.value)
		}
	}
	if t.InternalLength != 0 {
		length := "VARIABLE"
		if t.InternalLength > 0 {
			length = strconv.Itoa(t.InternalLength)
		}
		clauses = append(clauses, "INTERNALLENGTH = "+length)
	}
	if t.Alignment != "" {
		clauses = append(clauses, "ALIGNMENT = "+t.Alignment)
	}
	if t.Storage != "" {
		clauses = append(clauses, "STORAGE = "+t.Storage)
	}
	if t.Delimiter != "" && t.Delimiter != "," {
		clauses = append(clauses, "DELIMITER = "+utils.QuoteLiteral(t.Delimiter))
	}
	if t.Category != "" {
		clauses = append(clauses, "CATEGORY = "+utils.QuoteLiteral(t.Category))
	}
	if t.Preferred {
		clauses = append(clauses, "PREFERRED = true")
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TYPE %s (\n    %s)",
		t.Identifier(), strings.Join(clauses, ",\n    ")))
	return createSuffix(t, stmts)
}

// Drop implements Object. The cascade removes the input/output procedures
// the type cannot exist without; the remaining support procedures are
// dropped explicitly afterwards.
func (t *BaseType) Drop() []string {
	stmts := []string{utils.NewSQLBuilder().
		Drop("TYPE").
		Raw(t.Identifier()).
		Cascade().
		String()}
	for _, role := range []string{"typmod_in", "typmod_out", "analyze"} {
		if fn := t.deps[role]; fn != nil {
			stmts = append(stmts, fn.Drop()...)
		}
	}
	return stmts
}

// AlterDiff implements Object.
func (t *BaseType) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*BaseType)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a base type", desired.Identifier())
	}
	return baseAlterDiff(t, want), nil
}

// ToSpec implements Object.
func (t *BaseType) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(t, opts)
	dct["input"] = t.Input
	dct["output"] = t.Output
	optional := map[string]string{
		"receive":    t.Receive,
		"send":       t.Send,
		"typmod_in":  t.TypmodIn,
		"typmod_out": t.TypmodOut,
		"analyze":    t.Analyze,
		"alignment":  t.Alignment,
		"storage":    t.Storage,
		"category":   t.Category,
	}
	for key, value := range optional {
		if value != "" {
			dct[key] = value
		}
	}
	if t.InternalLength < 0 {
		dct["internallength"] = "variable"
	} else if t.InternalLength > 0 {
		dct["internallength"] = t.InternalLength
	}
	if t.Delimiter != "" && t.Delimiter != "," {
		dct["delimiter"] = t.Delimiter
	}
	if t.Preferred {
		dct["preferred"] = true
	}
	return dct
}

// typeFromSpec classifies and builds a type declared under a schema. The
// declared sub-keys discriminate the variant: labels means enum, attributes
// means composite, input means base type, and none of those means domain.
func typeFromSpec(schemaName, key, name string, v any) (Type, error) {
	body, _ := v.(map[string]any)
	if body == nil {
		return nil, errors.Wrapf(ErrMalformedSpec, "%s %q has no definition", key, name)
	}

	base := TypeBase{Schema: schemaName}
	base.Name = name
	if err := baseFromSpec(&base.ObjectBase, body); err != nil {
		return nil, err
	}

	_, hasLabels := body["labels"]
	_, hasAttrs := body["attributes"]
	_, hasInput := body["input"]
	if key == "domain" && (hasLabels || hasAttrs || hasInput) {
		return nil, errors.Wrapf(ErrMalformedSpec, "domain %q declares type-only attributes", name)
	}

	switch {
	case hasLabels:
		labels, ok := body["labels"].([]any)
		if !ok || len(labels) == 0 {
			return nil, errors.Wrapf(ErrMalformedSpec, "enum %q has no labels", name)
		}
		enum := &Enum{TypeBase: base}
		for _, label := range labels {
			s, ok := label.(string)
			if !ok {
				return nil, errors.Wrapf(ErrMalformedSpec, "enum %q labels must be strings", name)
			}
			enum.Labels = append(enum.Labels, s)
		}
		return enum, nil

	case hasAttrs:
		attrs, err := columnsFromSpec(schemaName, name, body["attributes"])
		if err != nil {
			return nil, err
		}
		return &Composite{TypeBase: base, Attributes: attrs}, nil

	case hasInput:
		return baseTypeFromSpec(base, body)

	default:
		return domainFromSpec(base, body)
	}
}

func domainFromSpec(base TypeBase, body map[string]any) (*Domain, error) {
	under, ok := body["type"].(string)
	if !ok || under == "" {
		return nil, errors.Wrapf(ErrMalformedSpec, "domain %q has no underlying type", base.Name)
	}
	dom := &Domain{TypeBase: base, Type: under}
	if nn, ok := body["not_null"].(bool); ok {
		dom.NotNull = nn
	}
	if d, ok := body["default"]; ok {
		dom.Default = fmt.Sprintf("%v", d)
	}
	if cv, ok := body["check_constraints"]; ok {
		checks, err := checkConstraintsFromSpec(base.Schema, base.Name, ConstraintTargetDomain, cv)
		if err != nil {
			return nil, err
		}
		dom.Checks = checks
	}
	return dom, nil
}

func baseTypeFromSpec(base TypeBase, body map[string]any) (*BaseType, error) {
	t := &BaseType{TypeBase: base}
	t.Input, _ = body["input"].(string)
	t.Output, _ = body["output"].(string)
	if t.Output == "" {
		return nil, errors.Wrapf(ErrMalformedSpec, "type %q has input but no output", base.Name)
	}
	t.Receive, _ = body["receive"].(string)
	t.Send, _ = body["send"].(string)
	t.TypmodIn, _ = body["typmod_in"].(string)
	t.TypmodOut, _ = body["typmod_out"].(string)
	t.Analyze, _ = body["analyze"].(string)
	t.Delimiter, _ = body["delimiter"].(string)
	t.Category, _ = body["category"].(string)
	if p, ok := body["preferred"].(bool); ok {
		t.Preferred = p
	}
	switch length := body["internallength"].(type) {
	case nil:
	case string:
		if length != "variable" {
			return nil, errors.Wrapf(ErrMalformedSpec, "type %q: bad internallength %q", base.Name, length)
		}
		t.InternalLength = -1
	case int:
		t.InternalLength = length
	default:
		return nil, errors.Wrapf(ErrMalformedSpec, "type %q: bad internallength", base.Name)
	}
	if a, ok := body["alignment"].(string); ok {
		t.Alignment = a
	}
	if s, ok := body["storage"].(string); ok {
		t.Storage = s
	}
	return t, nil
}
