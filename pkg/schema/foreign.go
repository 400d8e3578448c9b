package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// optionsClause renders an OPTIONS (...) clause from key=value pairs, or
// "" when there are none.
func optionsClause(options []string) string {
	if len(options) == 0 {
		return ""
	}
	rendered := make([]string, len(options))
	for i, opt := range options {
		key, value, _ := strings.Cut(opt, "=")
		rendered[i] = key + " " + utils.QuoteLiteral(value)
	}
	return "OPTIONS (" + strings.Join(rendered, ", ") + ")"
}

// diffOptions renders the OPTIONS clause reconciling current options with
// desired ones: new keys are added, changed keys SET, missing keys dropped.
// Returns "" when nothing changed.
func diffOptions(current, desired []string) string {
	cur := map[string]string{}
	for _, opt := range current {
		key, value, _ := strings.Cut(opt, "=")
		cur[key] = value
	}
	seen := map[string]bool{}
	var clauses []string
	for _, opt := range desired {
		key, value, _ := strings.Cut(opt, "=")
		seen[key] = true
		old, ok := cur[key]
		switch {
		case !ok:
			clauses = append(clauses, key+" "+utils.QuoteLiteral(value))
		case old != value:
			clauses = append(clauses, "SET "+key+" "+utils.QuoteLiteral(value))
		}
	}
	for _, opt := range current {
		key, _, _ := strings.Cut(opt, "=")
		if !seen[key] {
			clauses = append(clauses, "DROP "+key)
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return "OPTIONS (" + strings.Join(clauses, ", ") + ")"
}

func optionsSpec(options []string) []any {
	out := make([]any, len(options))
	for i, opt := range options {
		out[i] = opt
	}
	return out
}

func optionsFromSpec(owner string, v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	entries, ok := v.([]any)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q: options must be a list of key=value strings", owner)
	}
	options := make([]string, 0, len(entries))
	for _, entry := range entries {
		s, ok := entry.(string)
		if !ok || !strings.Contains(s, "=") {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: bad option %v", owner, entry)
		}
		options = append(options, s)
	}
	return options, nil
}

// ForeignDataWrapper is a pg_foreign_data_wrapper entry.
type ForeignDataWrapper struct {
	ObjectBase

	Handler   string
	Validator string
	Options   []string

	// populated by the linker
	Servers []*ForeignServer
}

// Key implements Object.
func (w *ForeignDataWrapper) Key() Key { return Key{w.Name} }

// ObjectType implements Object.
func (w *ForeignDataWrapper) ObjectType() string { return "FOREIGN DATA WRAPPER" }

// Identifier implements Object.
func (w *ForeignDataWrapper) Identifier() string { return utils.QuoteIdent(w.Name) }

// SpecKey implements Object.
func (w *ForeignDataWrapper) SpecKey() string { return "foreign data wrapper " + w.Name }

// Create implements Object.
func (w *ForeignDataWrapper) Create() []string {
	b := utils.NewSQLBuilder().
		Create("FOREIGN DATA WRAPPER").
		Name(w.Name)
	if w.Handler != "" {
		b.Rawf("HANDLER %s", w.Handler)
	}
	if w.Validator != "" {
		b.Rawf("VALIDATOR %s", w.Validator)
	}
	if clause := optionsClause(w.Options); clause != "" {
		b.Raw(clause)
	}
	return createSuffix(w, []string{b.String()})
}

// Drop implements Object.
func (w *ForeignDataWrapper) Drop() []string { return []string{dropSQL(w)} }

// AlterDiff implements Object.
func (w *ForeignDataWrapper) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*ForeignDataWrapper)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a foreign data wrapper", desired.Identifier())
	}
	var stmts []string
	if clause := diffOptions(w.Options, want.Options); clause != "" {
		stmts = append(stmts, utils.NewSQLBuilder().
			Alter("FOREIGN DATA WRAPPER").
			Name(w.Name).
			Raw(clause).
			String())
	}
	return append(stmts, baseAlterDiff(w, want)...), nil
}

// ToSpec implements Object.
func (w *ForeignDataWrapper) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(w, opts)
	if w.Handler != "" {
		dct["handler"] = w.Handler
	}
	if w.Validator != "" {
		dct["validator"] = w.Validator
	}
	if len(w.Options) > 0 {
		dct["options"] = optionsSpec(w.Options)
	}
	for _, srv := range w.Servers {
		dct[srv.SpecKey()] = srv.ToSpec(opts)
	}
	return dct
}

// ForeignServer is a server defined under a wrapper.
type ForeignServer struct {
	ObjectBase

	Wrapper string
	Type    string
	Version string
	Options []string

	// populated by the linker
	Mappings []*UserMapping
}

// Key implements Object.
func (s *ForeignServer) Key() Key { return Key{s.Wrapper, s.Name} }

// ObjectType implements Object.
func (s *ForeignServer) ObjectType() string { return "SERVER" }

// Identifier implements Object.
func (s *ForeignServer) Identifier() string { return utils.QuoteIdent(s.Name) }

// SpecKey implements Object.
func (s *ForeignServer) SpecKey() string { return "server " + s.Name }

// Create implements Object.
func (s *ForeignServer) Create() []string {
	b := utils.NewSQLBuilder().
		Create("SERVER").
		Name(s.Name)
	if s.Type != "" {
		b.Rawf("TYPE %s", utils.QuoteLiteral(s.Type))
	}
	if s.Version != "" {
		b.Rawf("VERSION %s", utils.QuoteLiteral(s.Version))
	}
	b.Rawf("FOREIGN DATA WRAPPER %s", utils.QuoteIdent(s.Wrapper))
	if clause := optionsClause(s.Options); clause != "" {
		b.Raw(clause)
	}
	return createSuffix(s, []string{b.String()})
}

// Drop implements Object.
func (s *ForeignServer) Drop() []string { return []string{dropSQL(s)} }

// AlterDiff implements Object.
func (s *ForeignServer) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*ForeignServer)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a server", desired.Identifier())
	}
	var stmts []string
	b := utils.NewSQLBuilder().Alter("SERVER").Name(s.Name)
	changed := false
	if want.Version != "" && want.Version != s.Version {
		b.Rawf("VERSION %s", utils.QuoteLiteral(want.Version))
		changed = true
	}
	if clause := diffOptions(s.Options, want.Options); clause != "" {
		b.Raw(clause)
		changed = true
	}
	if changed {
		stmts = append(stmts, b.String())
	}
	return append(stmts, baseAlterDiff(s, want)...), nil
}

// ToSpec implements Object.
func (s *ForeignServer) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(s, opts)
	if s.Type != "" {
		dct["type"] = s.Type
	}
	if s.Version != "" {
		dct["version"] = s.Version
	}
	if len(s.Options) > 0 {
		dct["options"] = optionsSpec(s.Options)
	}
	for _, um := range s.Mappings {
		dct[um.SpecKey()] = um.ToSpec(opts)
	}
	return dct
}

// UserMapping maps a role, or PUBLIC, to credentials on a server. The
// pseudo-role PUBLIC is stored by name and rendered unquoted.
type UserMapping struct {
	ObjectBase

	Wrapper string
	Server  string
	Options []string
}

// Key implements Object.
func (m *UserMapping) Key() Key { return Key{m.Wrapper, m.Server, m.Name} }

// ObjectType implements Object.
func (m *UserMapping) ObjectType() string { return "USER MAPPING" }

// roleName renders the mapped role, leaving PUBLIC bare.
func (m *UserMapping) roleName() string {
	if strings.EqualFold(m.Name, "PUBLIC") {
		return "PUBLIC"
	}
	return utils.QuoteIdent(m.Name)
}

// Identifier implements Object.
func (m *UserMapping) Identifier() string {
	return fmt.Sprintf("FOR %s SERVER %s", m.roleName(), utils.QuoteIdent(m.Server))
}

// SpecKey implements Object.
func (m *UserMapping) SpecKey() string { return "user mapping for " + m.Name }

// Create implements Object.
func (m *UserMapping) Create() []string {
	b := utils.NewSQLBuilder().
		Create("USER MAPPING").
		Raw(m.Identifier())
	if clause := optionsClause(m.Options); clause != "" {
		b.Raw(clause)
	}
	return []string{b.String()}
}

// Drop implements Object.
func (m *UserMapping) Drop() []string { return []string{dropSQL(m)} }

// AlterDiff implements Object.
func (m *UserMapping) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*UserMapping)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a user mapping", desired.Identifier())
	}
	var stmts []string
	if clause := diffOptions(m.Options, want.Options); clause != "" {
		stmts = append(stmts, utils.NewSQLBuilder().
			Alter("USER MAPPING").
			Raw(m.Identifier()).
			Raw(clause).
			String())
	}
	return stmts, nil
}

// ToSpec implements Object.
func (m *UserMapping) ToSpec(opts SpecOptions) map[string]any {
	dct := map[string]any{}
	if len(m.Options) > 0 {
		dct["options"] = optionsSpec(m.Options)
	}
	return dct
}

// ForeignTable is a relation backed by a foreign server.
type ForeignTable struct {
	ObjectBase

	Schema  string
	Server  string
	Options []string
	Columns []*Column
}

// Key implements Object.
func (t *ForeignTable) Key() Key { return Key{t.Schema, t.Name} }

// ObjectType implements Object.
func (t *ForeignTable) ObjectType() string { return "FOREIGN TABLE" }

// Identifier implements Object.
func (t *ForeignTable) Identifier() string { return utils.QuoteQualified(t.Schema, t.Name) }

// SpecKey implements Object.
func (t *ForeignTable) SpecKey() string { return "foreign table " + t.Name }

// Create implements Object.
func (t *ForeignTable) Create() []string {
	cols := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = "    " + col.AddClause()
	}
	b := utils.NewSQLBuilder().
		Create("FOREIGN TABLE").
		Raw(t.Identifier()).
		Rawf("(\n%s)", strings.Join(cols, ",\n")+"\n").
		Rawf("SERVER %s", utils.QuoteIdent(t.Server))
	if clause := optionsClause(t.Options); clause != "" {
		b.Raw(clause)
	}
	return createSuffix(t, []string{b.String()})
}

// Drop implements Object.
func (t *ForeignTable) Drop() []string { return []string{dropSQL(t)} }

// AlterDiff implements Object.
func (t *ForeignTable) AlterDiff(desired Object) ([]string, error) {
	want, ok := desired.(*ForeignTable)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a foreign table", desired.Identifier())
	}
	var stmts []string
	if clause := diffOptions(t.Options, want.Options); clause != "" {
		stmts = append(stmts, utils.NewSQLBuilder().
			Alter("FOREIGN TABLE").
			Raw(t.Identifier()).
			Raw(clause).
			String())
	}
	return append(stmts, baseAlterDiff(t, want)...), nil
}

// ToSpec implements Object.
func (t *ForeignTable) ToSpec(opts SpecOptions) map[string]any {
	dct := baseSpec(t, opts)
	dct["server"] = t.Server
	if len(t.Options) > 0 {
		dct["options"] = optionsSpec(t.Options)
	}
	if len(t.Columns) > 0 {
		cols := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			cols[i] = col.ToSpec(opts)
		}
		dct["columns"] = cols
	}
	return dct
}

func wrapperFromSpec(name string, v any) (*ForeignDataWrapper, map[string]any, error) {
	body, _ := v.(map[string]any)
	if body == nil {
		body = map[string]any{}
	}
	fdw := &ForeignDataWrapper{}
	fdw.Name = name
	if err := baseFromSpec(&fdw.ObjectBase, body); err != nil {
		return nil, nil, err
	}
	fdw.Handler, _ = body["handler"].(string)
	fdw.Validator, _ = body["validator"].(string)
	options, err := optionsFromSpec(name, body["options"])
	if err != nil {
		return nil, nil, err
	}
	fdw.Options = options
	return fdw, body, nil
}

func serverFromSpec(wrapper, name string, v any) (*ForeignServer, map[string]any, error) {
	body, _ := v.(map[string]any)
	if body == nil {
		body = map[string]any{}
	}
	srv := &ForeignServer{Wrapper: wrapper}
	srv.Name = name
	if err := baseFromSpec(&srv.ObjectBase, body); err != nil {
		return nil, nil, err
	}
	srv.Type, _ = body["type"].(string)
	srv.Version = stringFromSpec(body["version"])
	options, err := optionsFromSpec(name, body["options"])
	if err != nil {
		return nil, nil, err
	}
	srv.Options = options
	return srv, body, nil
}

func userMappingFromSpec(wrapper, server, role string, v any) (*UserMapping, error) {
	body, _ := v.(map[string]any)
	um := &UserMapping{Wrapper: wrapper, Server: server}
	um.Name = role
	if body != nil {
		options, err := optionsFromSpec(role, body["options"])
		if err != nil {
			return nil, err
		}
		um.Options = options
	}
	return um, nil
}

func foreignTableFromSpec(schemaName, name string, v any) (*ForeignTable, []*Column, error) {
	body, _ := v.(map[string]any)
	if body == nil {
		return nil, nil, errors.Wrapf(ErrMalformedSpec, "foreign table %q has no definition", name)
	}
	ft := &ForeignTable{Schema: schemaName}
	ft.Name = name
	if err := baseFromSpec(&ft.ObjectBase, body); err != nil {
		return nil, nil, err
	}
	server, ok := body["server"].(string)
	if !ok || server == "" {
		return nil, nil, errors.Wrapf(ErrMalformedSpec, "foreign table %q has no server", name)
	}
	ft.Server = server
	options, err := optionsFromSpec(name, body["options"])
	if err != nil {
		return nil, nil, err
	}
	ft.Options = options
	var cols []*Column
	if cv, ok := body["columns"]; ok {
		if cols, err = columnsFromSpec(schemaName, name, cv); err != nil {
			return nil, nil, err
		}
	}
	return ft, cols, nil
}
