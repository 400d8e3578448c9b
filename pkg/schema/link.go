package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// Link resolves every cross-reference in the catalog: columns to their
// owning relations and composite types, check constraints to their
// domains, support procedures to their base types, servers to wrappers,
// mappings to servers, and members to schemas. Any dangling reference is
// fatal.
func (c *Catalog) Link() error {
	if err := c.linkColumns(); err != nil {
		return err
	}
	if err := c.linkConstraints(); err != nil {
		return err
	}
	if err := c.linkTypes(); err != nil {
		return err
	}
	if err := c.linkProcs(); err != nil {
		return err
	}
	if err := c.linkForeign(); err != nil {
		return err
	}
	return c.linkSchemas()
}

func (c *Catalog) linkColumns() error {
	grouped := map[string][]*Column{}
	for _, k := range c.Columns.Keys() {
		col, err := c.Columns.Get(k)
		if err != nil {
			return err
		}
		owner := Key{col.Schema, col.Relation}.raw()
		grouped[owner] = append(grouped[owner], col)
	}
	for owner, cols := range grouped {
		key := Key(strings.Split(owner, keySeparator))
		if rel, err := c.Relations.Get(key); err == nil {
			if len(rel.Columns) == 0 {
				rel.Columns = cols
			}
			continue
		}
		if ft, err := c.ForeignTables.Get(key); err == nil {
			if len(ft.Columns) == 0 {
				ft.Columns = cols
			}
			continue
		}
		if t, err := c.Types.Get(key); err == nil {
			if comp, ok := t.(*Composite); ok && len(comp.Attributes) == 0 {
				comp.Attributes = cols
			}
			continue
		}
		return errors.Wrapf(ErrUnresolvedReference,
			"columns of %q have no owning relation or type", key.String())
	}
	return nil
}

func (c *Catalog) linkConstraints() error {
	for _, k := range c.Constraints.Keys() {
		check, err := c.Constraints.Get(k)
		if err != nil {
			return err
		}
		if check.Target != ConstraintTargetDomain {
			continue
		}
		t, err := c.Types.Get(Key{check.Schema, check.Relation})
		if err != nil {
			return errors.Wrapf(ErrUnresolvedReference,
				"constraint %q has no domain %q", check.Name, check.Relation)
		}
		dom, ok := t.(*Domain)
		if !ok {
			return errors.Wrapf(ErrUnresolvedReference,
				"constraint %q: %q is not a domain", check.Name, check.Relation)
		}
		if dom.Checks == nil {
			dom.Checks = map[string]*CheckConstraint{}
		}
		dom.Checks[check.Name] = check
	}
	return nil
}

// linkTypes resolves the support procedures of base types. A procedure is
// matched by schema, name and the argument list its role implies; input
// procedures may carry either of two signatures, the remaining roles are
// unambiguous.
func (c *Catalog) linkTypes() error {
	for _, k := range c.Types.Keys() {
		t, err := c.Types.Get(k)
		if err != nil {
			return err
		}
		base, ok := t.(*BaseType)
		if !ok {
			continue
		}
		base.deps = map[string]*Function{}
		for _, role := range supportRoles {
			name := base.supportName(role)
			if name == "" {
				continue
			}
			fn, err := c.resolveSupportProc(base, role, name)
			if err != nil {
				return err
			}
			base.deps[role] = fn
			fn.supportOf = base.Key()
		}
	}
	return nil
}

func (c *Catalog) resolveSupportProc(t *BaseType, role, name string) (*Function, error) {
	schemaName, procName := splitQualified(name, t.Schema)
	candidates := t.supportArguments(role)
	if role == "output" || role == "send" {
		candidates = append(candidates, t.Name)
	}
	for _, args := range candidates {
		p, err := c.Procs.Get(Key{schemaName, procName, args})
		if err != nil {
			continue
		}
		if fn, ok := p.(*Function); ok {
			return fn, nil
		}
	}
	return nil, errors.Wrapf(ErrUnresolvedReference,
		"type %q: no %s procedure %q with a matching signature", t.Name, role, name)
}

func (c *Catalog) linkProcs() error {
	for _, k := range c.Procs.Keys() {
		p, err := c.Procs.Get(k)
		if err != nil {
			return err
		}
		fn, ok := p.(*Function)
		if !ok {
			continue
		}
		if !builtinLanguages[fn.Language] && !c.Languages.Contains(Key{fn.Language}) {
			// plpgsql is preinstalled and need not be declared
			if fn.Language != "plpgsql" {
				return errors.Wrapf(ErrUnresolvedReference,
					"function %q uses unknown language %q", fn.Name, fn.Language)
			}
		}
		returns := strings.TrimPrefix(fn.Returns, "SETOF ")
		schemaName, relName := splitQualified(returns, fn.Schema)
		if rel, err := c.Relations.Get(Key{schemaName, relName}); err == nil {
			fn.depRelation = rel
		}
	}
	return nil
}

func (c *Catalog) linkForeign() error {
	for _, k := range c.Servers.Keys() {
		srv, err := c.Servers.Get(k)
		if err != nil {
			return err
		}
		fdw, err := c.Wrappers.Get(Key{srv.Wrapper})
		if err != nil {
			return errors.Wrapf(ErrUnresolvedReference,
				"server %q has no wrapper %q", srv.Name, srv.Wrapper)
		}
		fdw.Servers = append(fdw.Servers, srv)
	}
	for _, k := range c.UserMappings.Keys() {
		um, err := c.UserMappings.Get(k)
		if err != nil {
			return err
		}
		srv, err := c.Servers.Get(Key{um.Wrapper, um.Server})
		if err != nil {
			return errors.Wrapf(ErrUnresolvedReference,
				"user mapping for %q has no server %q", um.Name, um.Server)
		}
		srv.Mappings = append(srv.Mappings, um)
	}
	for _, k := range c.ForeignTables.Keys() {
		ft, err := c.ForeignTables.Get(k)
		if err != nil {
			return err
		}
		found := false
		for _, sk := range c.Servers.Keys() {
			if sk[len(sk)-1] == ft.Server {
				found = true
				break
			}
		}
		if !found {
			return errors.Wrapf(ErrUnresolvedReference,
				"foreign table %q has no server %q", ft.Name, ft.Server)
		}
	}
	return nil
}

func (c *Catalog) linkSchemas() error {
	lookup := func(name string, member Object) (*Schema, error) {
		sch, err := c.Schemas.Get(Key{name})
		if err != nil {
			return nil, errors.Wrapf(ErrUnresolvedReference,
				"%s %q has no schema %q", strings.ToLower(member.ObjectType()), member.Identifier(), name)
		}
		return sch, nil
	}
	for _, k := range c.Types.Keys() {
		t, err := c.Types.Get(k)
		if err != nil {
			return err
		}
		sch, err := lookup(t.typeBase().Schema, t)
		if err != nil {
			return err
		}
		sch.Types = append(sch.Types, t)
	}
	for _, k := range c.Procs.Keys() {
		p, err := c.Procs.Get(k)
		if err != nil {
			return err
		}
		sch, err := lookup(p.procBase().Schema, p)
		if err != nil {
			return err
		}
		sch.Procs = append(sch.Procs, p)
	}
	for _, k := range c.Relations.Keys() {
		rel, err := c.Relations.Get(k)
		if err != nil {
			return err
		}
		sch, err := lookup(rel.Schema, rel)
		if err != nil {
			return err
		}
		sch.Relations = append(sch.Relations, rel)
	}
	for _, k := range c.ForeignTables.Keys() {
		ft, err := c.ForeignTables.Get(k)
		if err != nil {
			return err
		}
		sch, err := lookup(ft.Schema, ft)
		if err != nil {
			return err
		}
		sch.ForeignTables = append(sch.ForeignTables, ft)
	}
	return nil
}
