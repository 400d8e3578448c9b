package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/schema"
)

const relationsQuery = `
SELECT nspname AS schema, relname AS name, relkind::text AS kind,
       rolname AS owner, array_to_string(relacl, ',') AS privileges,
       obj_description(c.oid, 'pg_class') AS description
FROM pg_class c
     JOIN pg_namespace n ON (c.relnamespace = n.oid)
     JOIN pg_roles r ON (r.oid = c.relowner)
WHERE relkind IN ('r', 'p', 'v', 'm', 'S')
  AND nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  %s
ORDER BY nspname, relname`

func ingestRelations(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	rows, err := src.FetchRows(ctx, queryf(relationsQuery, extensionFilter(src, "c.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		kind := row.Str("kind")
		switch kind {
		case schema.RelKindTable, schema.RelKindPartitioned, schema.RelKindView,
			schema.RelKindMatView, schema.RelKindSequence:
		default:
			return errors.Wrapf(schema.ErrUnclassifiableRow,
				"relation %q has unknown kind %q", row.Str("name"), kind)
		}
		rel := &schema.Relation{Schema: row.Str("schema"), Kind: kind}
		rel.Name = row.Str("name")
		fillBase(&rel.ObjectBase, row)
		if err := cat.Relations.Put(rel); err != nil {
			return err
		}
	}
	return nil
}

const columnsQuery = `
SELECT nspname AS schema, relname AS relation, attname AS name,
       format_type(atttypid, atttypmod) AS type, attnotnull AS not_null,
       pg_get_expr(adbin, adrelid) AS default, attnum AS number,
       col_description(c.oid, attnum) AS description
FROM pg_attribute a
     JOIN pg_class c ON (attrelid = c.oid)
     JOIN pg_namespace n ON (c.relnamespace = n.oid)
     LEFT JOIN pg_attrdef d ON (adrelid = attrelid AND adnum = attnum)
WHERE relkind IN ('r', 'p', 'v', 'm', 'f', 'c')
  AND attnum > 0 AND NOT attisdropped
  AND nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  %s
ORDER BY nspname, relname, attnum`

func ingestColumns(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	rows, err := src.FetchRows(ctx, queryf(columnsQuery, extensionFilter(src, "c.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		col := &schema.Column{
			Schema:   row.Str("schema"),
			Relation: row.Str("relation"),
			Type:     row.Str("type"),
			NotNull:  row.Bool("not_null"),
			Default:  row.Str("default"),
			Number:   row.Int("number"),
		}
		col.Name = row.Str("name")
		col.Description = row.Str("description")
		if err := cat.Columns.Put(col); err != nil {
			return err
		}
	}
	return nil
}

const constraintsQuery = `
SELECT nspname AS schema, typname AS relation, conname AS name,
       pg_get_constraintdef(con.oid) AS definition
FROM pg_constraint con
     JOIN pg_type t ON (contypid = t.oid)
     JOIN pg_namespace n ON (t.typnamespace = n.oid)
WHERE contype = 'c'
  AND nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
ORDER BY nspname, typname, conname`

// ingestConstraints reads domain check constraints. The expression is
// unwrapped from the CHECK (...) rendering pg_get_constraintdef produces.
func ingestConstraints(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	rows, err := src.FetchRows(ctx, constraintsQuery)
	if err != nil {
		return err
	}
	for _, row := range rows {
		check := &schema.CheckConstraint{
			Schema:     row.Str("schema"),
			Relation:   row.Str("relation"),
			Target:     schema.ConstraintTargetDomain,
			Expression: unwrapCheck(row.Str("definition")),
		}
		check.Name = row.Str("name")
		if err := cat.Constraints.Put(check); err != nil {
			return err
		}
	}
	return nil
}

func unwrapCheck(def string) string {
	const prefix = "CHECK ("
	if len(def) > len(prefix)+1 && def[:len(prefix)] == prefix && def[len(def)-1] == ')' {
		return def[len(prefix) : len(def)-1]
	}
	return def
}
