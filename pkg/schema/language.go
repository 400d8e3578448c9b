package schema

import (
	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// builtinLanguages are implemented inside the server and never appear in
// specifications or plans.
var builtinLanguages = map[string]bool{
	"sql":      true,
	"c":        true,
	"internal": true,
}

// Language is a procedural language. plpgsql is installed by default in
// every modern server and is never dropped.
type Language struct {
	ObjectBase

	Trusted bool
}

// Key implements Object.
func (l *Language) Key() Key { return Key{l.Name} }

// ObjectType implements Object.
func (l *Language) ObjectType() string { return "LANGUAGE" }

// Identifier implements Object.
func (l *Language) Identifier() string { return utils.QuoteIdent(l.Name) }

// SpecKey implements Object.
func (l *Language) SpecKey() string { return "language " + l.Name }

// Create implements Object.
func (l *Language) Create() []string {
	stmt := utils.NewSQLBuilder().
		Create("LANGUAGE").
		Name(l.Name).
		String()
	return createSuffix(l, []string{stmt})
}

// Drop implements Object.
func (l *Language) Drop() []string { return []string{dropSQL(l)} }

// AlterDiff implements Object.
func (l *Language) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*Language)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a language", desired.Identifier())
	}
	return baseAlterDiff(l, want), nil
}

// ToSpec implements Object.
func (l *Language) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(l, opts)
	if l.Trusted {
		dct["trusted"] = true
	}
	return dct
}

func languageFromSpec(name string, v any) (*Language, error) {
	if builtinLanguages[name] {
		return nil, errors.Wrapf(ErrMalformedSpec, "language %q is built in", name)
	}
	lang := &Language{}
	lang.Name = name
	body, _ := v.(map[string]any)
	if body == nil {
		return lang, nil
	}
	if err := baseFromSpec(&lang.ObjectBase, body); err != nil {
		return nil, err
	}
	if t, ok := body["trusted"].(bool); ok {
		lang.Trusted = t
	}
	return lang, nil
}
