package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/schema"
)

const typesQuery = `
SELECT nspname AS schema, typname AS name, typtype::text AS kind, rolname AS owner,
       array_to_string(t.typacl, ',') AS privileges,
       format_type(typbasetype, typtypmod) AS basetype,
       typnotnull AS not_null, typdefault AS default,
       typinput::regproc::text AS input, typoutput::regproc::text AS output,
       typreceive::regproc::text AS receive, typsend::regproc::text AS send,
       typmodin::regproc::text AS typmod_in, typmodout::regproc::text AS typmod_out,
       typanalyze::regproc::text AS analyze,
       typlen AS internallength, typalign::text AS alignment,
       typstorage::text AS storage, typdelim::text AS delimiter,
       typcategory::text AS category, typispreferred AS preferred,
       obj_description(t.oid, 'pg_type') AS description
FROM pg_type t
     JOIN pg_namespace n ON (t.typnamespace = n.oid)
     JOIN pg_roles r ON (r.oid = t.typowner)
     LEFT JOIN pg_class c ON (t.typrelid = c.oid)
WHERE typtype IN ('b', 'c', 'd', 'e')
  AND (t.typrelid = 0 OR c.relkind = 'c')
  AND NOT EXISTS (SELECT 1 FROM pg_type el
                  WHERE el.oid = t.typelem AND el.typarray = t.oid)
  AND nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  %s
ORDER BY nspname, typname`

const enumLabelsQuery = `
SELECT nspname AS schema, typname AS name, enumlabel AS label
FROM pg_enum e
     JOIN pg_type t ON (enumtypid = t.oid)
     JOIN pg_namespace n ON (t.typnamespace = n.oid)
ORDER BY nspname, typname, enumsortorder`

// ingestTypes classifies pg_type rows into the four type variants by their
// kind code, then attaches enum labels in sort order.
func ingestTypes(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	rows, err := src.FetchRows(ctx, queryf(typesQuery, extensionFilter(src, "t.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		t, err := classifyType(row)
		if err != nil {
			return err
		}
		if err := cat.Types.Put(t); err != nil {
			return err
		}
	}

	labels, err := src.FetchRows(ctx, enumLabelsQuery)
	if err != nil {
		return err
	}
	for _, row := range labels {
		t, err := cat.Types.Get(schema.Key{row.Str("schema"), row.Str("name")})
		if err != nil {
			continue
		}
		if enum, ok := t.(*schema.Enum); ok {
			enum.Labels = append(enum.Labels, row.Str("label"))
		}
	}
	return nil
}

func classifyType(row Row) (schema.Type, error) {
	base := schema.TypeBase{Schema: row.Str("schema")}
	base.Name = row.Str("name")
	fillBase(&base.ObjectBase, row)

	switch kind := row.Str("kind"); kind {
	case schema.TypeKindDomain:
		return &schema.Domain{
			TypeBase: base,
			Type:     row.Str("basetype"),
			NotNull:  row.Bool("not_null"),
			Default:  row.Str("default"),
		}, nil

	case schema.TypeKindEnum:
		return &schema.Enum{TypeBase: base}, nil

	case schema.TypeKindComposite:
		return &schema.Composite{TypeBase: base}, nil

	case schema.TypeKindBase:
		t := &schema.BaseType{
			TypeBase:       base,
			Input:          row.Str("input"),
			Output:         row.Str("output"),
			InternalLength: row.Int("internallength"),
			Alignment:      schema.AlignmentNames[row.Str("alignment")],
			Storage:        schema.StorageNames[row.Str("storage")],
			Delimiter:      row.Str("delimiter"),
			Category:       row.Str("category"),
			Preferred:      row.Bool("preferred"),
		}
		// the zero regproc renders as a dash
		for col, field := range map[string]*string{
			"receive":    &t.Receive,
			"send":       &t.Send,
			"typmod_in":  &t.TypmodIn,
			"typmod_out": &t.TypmodOut,
			"analyze":    &t.Analyze,
		} {
			if v := row.Str(col); v != "-" {
				*field = v
			}
		}
		return t, nil

	default:
		return nil, errors.Wrapf(schema.ErrUnclassifiableRow,
			"type %q has unknown kind %q", base.Name, kind)
	}
}
