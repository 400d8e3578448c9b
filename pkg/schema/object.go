package schema

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

type (
	// Key is the composite identity of an object within its collection:
	// an ordered tuple of strings such as [schema, name],
	// [schema, name, arguments] or [wrapper, server, user]. Keys are
	// immutable; a rename re-keys the collection rather than mutating the
	// key in place.
	Key []string

	// SpecOptions controls what ToSpec includes when emitting objects
	// back into a specification map.
	SpecOptions struct {
		// ExcludeOwner omits owner fields from the output.
		ExcludeOwner bool

		// ExcludePrivileges omits privilege fields from the output.
		ExcludePrivileges bool

		// ExcludedNames skips the named objects entirely.
		ExcludedNames []string
	}

	// Object is the contract implemented by every database object variant
	// (Schema, Domain, Enum, Composite, BaseType, Function, Aggregate,
	// Language, ForeignDataWrapper, ForeignServer, UserMapping and
	// ForeignTable). The reconciliation engine works exclusively through
	// this interface and the capability interfaces below; variant-specific
	// structure is reached only inside each variant's own methods.
	Object interface {
		// Key returns the composite identity key, unique per collection.
		Key() Key

		// ObjectType returns the DDL keyword for the object, e.g. "TYPE"
		// or "FOREIGN DATA WRAPPER".
		ObjectType() string

		// Identifier returns the SQL identifier used after ALTER/DROP,
		// including argument signatures where the grammar requires them.
		Identifier() string

		// SpecKey returns the map key used in specification documents,
		// e.g. "type inet2" or "function fib(integer)".
		SpecKey() string

		// Create returns the DDL to create the object, in execution
		// order. Multi-statement creates (base types, foreign tables)
		// return more than one statement.
		Create() []string

		// Drop returns the DDL to drop the object.
		Drop() []string

		// AlterDiff returns DDL transforming the receiver (the current
		// state) into desired. Returns nil when nothing differs.
		AlterDiff(desired Object) ([]string, error)

		// ToSpec returns the specification fragment for the object, or
		// nil when the object has nothing to emit.
		ToSpec(opts SpecOptions) map[string]any

		base() *ObjectBase
	}

	// Ownable is implemented by objects whose ownership can be altered.
	Ownable interface {
		Object
		OwnerName() string
	}

	// Commentable is implemented by objects that accept COMMENT ON.
	Commentable interface {
		Object
		CommentText() string
	}

	// Grantable is implemented by objects that carry an access control
	// list.
	Grantable interface {
		Object
		ACL() []string
	}

	// ObjectBase carries the fields shared by every object variant.
	// Embedding it supplies the capability interface methods and the
	// transient rename/drop markers.
	ObjectBase struct {
		// Name is the object's unqualified name (the final key element).
		Name string

		// Owner is the owning role. Empty means "unspecified": the
		// reconciliation engine never alters ownership toward an empty
		// desired owner.
		Owner string

		// Privileges holds raw ACL items ("role=flags/grantor"). A nil
		// slice means privileges were not specified.
		Privileges []string

		// Description is the object's comment, empty when none.
		Description string

		// OldName requests a rename; present only transiently on
		// specification-side objects.
		OldName string

		dropped bool
	}
)

// keySeparator joins key elements into map keys. It cannot occur in
// identifiers or argument signatures.
const keySeparator = "\x1f"

// String renders a key for error messages.
func (k Key) String() string {
	return strings.Join(k, " ")
}

// raw is the map form of the key.
func (k Key) raw() string {
	return strings.Join(k, keySeparator)
}

// withName returns a copy of the key with the final element replaced. Used
// to locate the old key during rename resolution.
func (k Key) withName(name string) Key {
	out := make(Key, len(k))
	copy(out, k)
	out[len(out)-1] = name
	return out
}

func (b *ObjectBase) base() *ObjectBase { return b }

// OwnerName implements Ownable.
func (b *ObjectBase) OwnerName() string { return b.Owner }

// CommentText implements Commentable.
func (b *ObjectBase) CommentText() string { return b.Description }

// ACL implements Grantable.
func (b *ObjectBase) ACL() []string { return b.Privileges }

// createSuffix appends the owner, grant and comment statements that follow
// an object's CREATE, in that order, for whichever capabilities the object
// has.
func createSuffix(o Object, stmts []string) []string {
	if own, ok := o.(Ownable); ok && own.OwnerName() != "" {
		stmts = append(stmts, alterOwnerSQL(o, own.OwnerName()))
	}
	if g, ok := o.(Grantable); ok {
		stmts = append(stmts, grantStatements(g)...)
	}
	if c, ok := o.(Commentable); ok && c.CommentText() != "" {
		stmts = append(stmts, commentSQL(o, c.CommentText()))
	}
	return stmts
}

// baseAlterDiff produces the owner, privilege and description alterations
// shared by all variants. Variant AlterDiff implementations call this after
// their structural comparisons.
func baseAlterDiff(cur, want Object) []string {
	var stmts []string
	if own, ok := want.(Ownable); ok && own.OwnerName() != "" && own.OwnerName() != cur.base().Owner {
		stmts = append(stmts, alterOwnerSQL(cur, own.OwnerName()))
	}
	if g, ok := want.(Grantable); ok && g.ACL() != nil {
		stmts = append(stmts, diffPrivileges(cur.(Grantable), g)...)
	}
	if c, ok := want.(Commentable); ok && c.CommentText() != cur.base().Description {
		stmts = append(stmts, commentSQL(cur, c.CommentText()))
	}
	return stmts
}

func alterOwnerSQL(o Object, owner string) string {
	return utils.NewSQLBuilder().
		Alter(o.ObjectType()).
		Raw(o.Identifier()).
		OwnerTo(owner).
		String()
}

func commentSQL(o Object, text string) string {
	return utils.NewSQLBuilder().
		CommentOn(o.ObjectType()).
		Raw(o.Identifier()).
		Is(text).
		String()
}

func renameSQL(o Object, newName string) string {
	return utils.NewSQLBuilder().
		Alter(o.ObjectType()).
		Raw(o.Identifier()).
		RenameTo(newName).
		String()
}

func dropSQL(o Object) string {
	return utils.NewSQLBuilder().
		Drop(o.ObjectType()).
		Raw(o.Identifier()).
		String()
}

// splitQualified splits a possibly schema-qualified name, defaulting to the
// given schema when no qualifier is present. Quoted identifiers are
// unwrapped.
func splitQualified(name, defaultSchema string) (schema, object string) {
	schema = defaultSchema
	object = name
	if i := strings.Index(name, "."); i >= 0 && !strings.HasPrefix(name, `"`) {
		schema = name[:i]
		object = name[i+1:]
	}
	schema = strings.Trim(schema, `"`)
	object = strings.Trim(object, `"`)
	return schema, object
}

// baseSpec emits the owner/privileges/description fields common to all
// variants, honoring the emission options.
func baseSpec(o Object, opts SpecOptions) map[string]any {
	dct := map[string]any{}
	b := o.base()
	if !opts.ExcludeOwner && b.Owner != "" {
		dct["owner"] = b.Owner
	}
	if !opts.ExcludePrivileges && len(b.Privileges) > 0 {
		dct["privileges"] = privilegesSpec(b.Privileges)
	}
	if b.Description != "" {
		dct["description"] = b.Description
	}
	return dct
}

// baseFromSpec reads the attributes shared by every object variant out of a
// spec body: owner, description, privileges and oldname.
func baseFromSpec(b *ObjectBase, body map[string]any) error {
	if owner, ok := body["owner"].(string); ok {
		b.Owner = owner
	}
	if desc, ok := body["description"].(string); ok {
		b.Description = desc
	}
	if old, ok := body["oldname"].(string); ok {
		b.OldName = old
	}
	if pv, ok := body["privileges"]; ok {
		privs, err := privilegesFromSpec(pv)
		if err != nil {
			return errors.Wrapf(err, "object %q", b.Name)
		}
		b.Privileges = privs
	}
	return nil
}

func (o SpecOptions) excluded(name string) bool {
	for _, n := range o.ExcludedNames {
		if n == name {
			return true
		}
	}
	return false
}
