package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// Catalog is the full object graph of one database, on either side of a
// reconciliation: ingested from the live catalog or from a specification.
// Every collection is keyed globally, members hold their parent names as
// part of their keys.
type Catalog struct {
	Schemas       *Collection[*Schema]
	Languages     *Collection[*Language]
	Types         *Collection[Type]
	Relations     *Collection[*Relation]
	Columns       *Collection[*Column]
	Constraints   *Collection[*CheckConstraint]
	Procs         *Collection[Proc]
	Wrappers      *Collection[*ForeignDataWrapper]
	Servers       *Collection[*ForeignServer]
	UserMappings  *Collection[*UserMapping]
	ForeignTables *Collection[*ForeignTable]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Schemas:       NewCollection[*Schema](),
		Languages:     NewCollection[*Language](),
		Types:         NewCollection[Type](),
		Relations:     NewCollection[*Relation](),
		Columns:       NewCollection[*Column](),
		Constraints:   NewCollection[*CheckConstraint](),
		Procs:         NewCollection[Proc](),
		Wrappers:      NewCollection[*ForeignDataWrapper](),
		Servers:       NewCollection[*ForeignServer](),
		UserMappings:  NewCollection[*UserMapping](),
		ForeignTables: NewCollection[*ForeignTable](),
	}
}

// baseAttrs are the spec keys handled by baseFromSpec on any object body.
var baseAttrs = map[string]bool{
	"owner":       true,
	"description": true,
	"privileges":  true,
	"oldname":     true,
}

// FromSpec builds a catalog from a parsed specification map and resolves
// all cross-references. Every top-level key must carry a recognized type
// prefix.
func FromSpec(input map[string]any) (*Catalog, error) {
	cat := NewCatalog()
	for _, key := range sortedNames(input) {
		v := input[key]
		switch {
		case strings.HasPrefix(key, "schema "):
			if err := cat.schemaFromSpec(strings.TrimPrefix(key, "schema "), v); err != nil {
				return nil, err
			}
		case strings.HasPrefix(key, "language "):
			lang, err := languageFromSpec(strings.TrimPrefix(key, "language "), v)
			if err != nil {
				return nil, err
			}
			if err := cat.Languages.Put(lang); err != nil {
				return nil, err
			}
		case strings.HasPrefix(key, "foreign data wrapper "):
			if err := cat.wrapperFromSpec(strings.TrimPrefix(key, "foreign data wrapper "), v); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Wrapf(ErrMalformedSpec, "unknown top-level key %q", key)
		}
	}
	if err := cat.Link(); err != nil {
		return nil, err
	}
	return cat, nil
}

var relKindWords = map[string]string{
	"table":             RelKindTable,
	"view":              RelKindView,
	"materialized view": RelKindMatView,
	"sequence":          RelKindSequence,
}

func (c *Catalog) schemaFromSpec(name string, v any) error {
	body, _ := v.(map[string]any)
	if body == nil {
		body = map[string]any{}
	}
	sch, err := schemaFromSpec(name, body)
	if err != nil {
		return err
	}
	if err := c.Schemas.Put(sch); err != nil {
		return err
	}

	// sorted iteration keeps collection order, and with it plan order,
	// deterministic
	for _, key := range sortedNames(body) {
		member := body[key]
		if baseAttrs[key] {
			continue
		}
		kind, decl, ok := memberPrefix(key)
		if !ok {
			return errors.Wrapf(ErrMalformedSpec, "schema %q: unknown member key %q", name, key)
		}
		switch kind {
		case "domain", "type":
			t, err := typeFromSpec(name, kind, decl, member)
			if err != nil {
				return err
			}
			if err := c.Types.Put(t); err != nil {
				return err
			}
		case "function":
			fn, err := functionFromSpec(name, decl, member)
			if err != nil {
				return err
			}
			if err := c.Procs.Put(fn); err != nil {
				return err
			}
		case "aggregate":
			agg, err := aggregateFromSpec(name, decl, member)
			if err != nil {
				return err
			}
			if err := c.Procs.Put(agg); err != nil {
				return err
			}
		case "table", "view", "sequence", "materialized view":
			rel, cols, err := relationFromSpec(name, relKindWords[kind], decl, member)
			if err != nil {
				return err
			}
			if err := c.Relations.Put(rel); err != nil {
				return err
			}
			for _, col := range cols {
				if err := c.Columns.Put(col); err != nil {
					return err
				}
			}
		case "foreign table":
			ft, cols, err := foreignTableFromSpec(name, decl, member)
			if err != nil {
				return err
			}
			if err := c.ForeignTables.Put(ft); err != nil {
				return err
			}
			for _, col := range cols {
				if err := c.Columns.Put(col); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Catalog) wrapperFromSpec(name string, v any) error {
	fdw, body, err := wrapperFromSpec(name, v)
	if err != nil {
		return err
	}
	if err := c.Wrappers.Put(fdw); err != nil {
		return err
	}
	for _, key := range sortedNames(body) {
		if !strings.HasPrefix(key, "server ") {
			continue
		}
		if err := c.serverFromSpec(name, strings.TrimPrefix(key, "server "), body[key]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) serverFromSpec(wrapper, name string, v any) error {
	srv, body, err := serverFromSpec(wrapper, name, v)
	if err != nil {
		return err
	}
	if err := c.Servers.Put(srv); err != nil {
		return err
	}
	for _, key := range sortedNames(body) {
		if !strings.HasPrefix(key, "user mapping for ") {
			continue
		}
		um, err := userMappingFromSpec(wrapper, name, strings.TrimPrefix(key, "user mapping for "), body[key])
		if err != nil {
			return err
		}
		if err := c.UserMappings.Put(um); err != nil {
			return err
		}
	}
	return nil
}

// ToSpec emits the catalog as a specification map.
func (c *Catalog) ToSpec(opts SpecOptions) map[string]any {
	out := map[string]any{}
	for _, k := range c.Languages.Keys() {
		lang, err := c.Languages.Get(k)
		if err != nil || opts.excluded(lang.Name) {
			continue
		}
		out[lang.SpecKey()] = lang.ToSpec(opts)
	}
	for _, k := range c.Wrappers.Keys() {
		fdw, err := c.Wrappers.Get(k)
		if err != nil || opts.excluded(fdw.Name) {
			continue
		}
		out[fdw.SpecKey()] = fdw.ToSpec(opts)
	}
	for _, k := range c.Schemas.Keys() {
		sch, err := c.Schemas.Get(k)
		if err != nil || opts.excluded(sch.Name) {
			continue
		}
		if systemSchemas[sch.Name] && len(sch.Types) == 0 && len(sch.Procs) == 0 &&
			len(sch.Relations) == 0 && len(sch.ForeignTables) == 0 {
			continue
		}
		out[sch.SpecKey()] = sch.ToSpec(opts)
	}
	return out
}

// GeneratePlan compares the current catalog against the desired one and
// returns the ordered DDL reconciling them. Both catalogs must already be
// linked. Creation passes run in dependency order, the drop sweep runs
// afterwards in reverse order.
func GeneratePlan(current, desired *Catalog) ([]string, error) {
	var plan []string
	add := func(stmts []string, err error) error {
		if err != nil {
			return err
		}
		plan = append(plan, stmts...)
		return nil
	}

	if err := add(reconcile(current.Schemas, desired.Schemas, reconcileOpts[*Schema]{
		keep: func(s *Schema) bool { return systemSchemas[s.Name] },
	})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.Languages, desired.Languages, reconcileOpts[*Language]{
		keep: func(l *Language) bool { return l.Name == "plpgsql" },
	})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.Types, desired.Types, reconcileOpts[Type]{})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.Procs, desired.Procs, reconcileOpts[Proc]{
		rank: func(p Proc) int {
			if _, ok := p.(*Aggregate); ok {
				return 1
			}
			return 0
		},
	})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.Wrappers, desired.Wrappers, reconcileOpts[*ForeignDataWrapper]{})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.Servers, desired.Servers, reconcileOpts[*ForeignServer]{})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.UserMappings, desired.UserMappings, reconcileOpts[*UserMapping]{})); err != nil {
		return nil, err
	}
	if err := add(reconcile(current.ForeignTables, desired.ForeignTables, reconcileOpts[*ForeignTable]{})); err != nil {
		return nil, err
	}

	plan = append(plan, current.dropStatements()...)
	if len(plan) == 0 {
		return nil, ErrNoDiff
	}

	// Function bodies may reference objects whose creation appears later
	// in the plan, so validation is deferred to execution time.
	for _, stmt := range plan {
		if strings.HasPrefix(stmt, "CREATE FUNCTION") || strings.HasPrefix(stmt, "CREATE OR REPLACE FUNCTION") {
			return append([]string{"SET check_function_bodies = false"}, plan...), nil
		}
	}
	return plan, nil
}

// dropStatements sweeps the marked objects in reverse dependency order:
// mappings and tables that need their servers, procedures before the types
// they implement would vanish, schemas before the servers and wrappers
// they do not depend on, languages last.
func (c *Catalog) dropStatements() []string {
	var stmts []string
	for _, um := range droppedObjects(c.UserMappings) {
		stmts = append(stmts, um.Drop()...)
	}
	for _, ft := range droppedObjects(c.ForeignTables) {
		stmts = append(stmts, ft.Drop()...)
	}

	var functions []*Function
	for _, p := range droppedObjects(c.Procs) {
		if agg, ok := p.(*Aggregate); ok {
			stmts = append(stmts, agg.Drop()...)
			continue
		}
		if fn, ok := p.(*Function); ok && fn.supportOf == nil {
			functions = append(functions, fn)
		}
	}
	for _, fn := range functions {
		stmts = append(stmts, fn.Drop()...)
	}

	for _, t := range droppedObjects(c.Types) {
		stmts = append(stmts, t.Drop()...)
	}
	for _, sch := range droppedObjects(c.Schemas) {
		stmts = append(stmts, sch.Drop()...)
	}
	for _, srv := range droppedObjects(c.Servers) {
		stmts = append(stmts, srv.Drop()...)
	}
	for _, fdw := range droppedObjects(c.Wrappers) {
		stmts = append(stmts, fdw.Drop()...)
	}
	for _, lang := range droppedObjects(c.Languages) {
		stmts = append(stmts, lang.Drop()...)
	}
	return stmts
}
