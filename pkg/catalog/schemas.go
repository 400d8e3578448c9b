package catalog

import (
	"context"

	"github.com/stewarddb/steward/pkg/schema"
)

const schemasQuery = `
SELECT nspname AS name, rolname AS owner,
       array_to_string(nspacl, ',') AS privileges,
       obj_description(n.oid, 'pg_namespace') AS description
FROM pg_namespace n
     JOIN pg_roles r ON (r.oid = nspowner)
WHERE nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  AND nspname NOT LIKE 'pg_temp\_%%' AND nspname NOT LIKE 'pg_toast_temp\_%%'
  %s
ORDER BY nspname`

func ingestSchemas(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	rows, err := src.FetchRows(ctx, queryf(schemasQuery, extensionFilter(src, "n.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		sch := &schema.Schema{}
		sch.Name = row.Str("name")
		fillBase(&sch.ObjectBase, row)
		if err := cat.Schemas.Put(sch); err != nil {
			return err
		}
	}
	return nil
}

const languagesQuery = `
SELECT lanname AS name, lanpltrusted AS trusted, rolname AS owner,
       array_to_string(lanacl, ',') AS privileges,
       obj_description(l.oid, 'pg_language') AS description
FROM pg_language l
     JOIN pg_roles r ON (r.oid = lanowner)
WHERE lanispl
  %s
ORDER BY lanname`

func ingestLanguages(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	rows, err := src.FetchRows(ctx, queryf(languagesQuery, extensionFilter(src, "l.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		lang := &schema.Language{Trusted: row.Bool("trusted")}
		lang.Name = row.Str("name")
		fillBase(&lang.ObjectBase, row)
		if err := cat.Languages.Put(lang); err != nil {
			return err
		}
	}
	return nil
}
