package catalog

import (
	"context"

	"github.com/stewarddb/steward/pkg/schema"
)

const wrappersQuery = `
SELECT fdwname AS name, rolname AS owner,
       %s AS handler,
       CASE WHEN fdwvalidator = 0 THEN NULL
            ELSE fdwvalidator::regproc::text END AS validator,
       fdwoptions AS options,
       array_to_string(fdwacl, ',') AS privileges,
       obj_description(w.oid, 'pg_foreign_data_wrapper') AS description
FROM pg_foreign_data_wrapper w
     JOIN pg_roles r ON (r.oid = fdwowner)
WHERE true
  %s
ORDER BY fdwname`

const serversQuery = `
SELECT fdwname AS wrapper, srvname AS name, srvtype AS type,
       srvversion AS version, srvoptions AS options, rolname AS owner,
       array_to_string(srvacl, ',') AS privileges,
       obj_description(s.oid, 'pg_foreign_server') AS description
FROM pg_foreign_server s
     JOIN pg_foreign_data_wrapper w ON (srvfdw = w.oid)
     JOIN pg_roles r ON (r.oid = srvowner)
WHERE true
  %s
ORDER BY fdwname, srvname`

const userMappingsQuery = `
SELECT fdwname AS wrapper, srvname AS server,
       CASE WHEN umuser = 0 THEN 'PUBLIC'
            ELSE pg_get_userbyid(umuser) END AS role,
       umoptions AS options
FROM pg_user_mapping u
     JOIN pg_foreign_server s ON (umserver = s.oid)
     JOIN pg_foreign_data_wrapper w ON (srvfdw = w.oid)
ORDER BY fdwname, srvname, role`

const foreignTablesQuery = `
SELECT nspname AS schema, relname AS name, srvname AS server,
       ftoptions AS options, rolname AS owner,
       array_to_string(relacl, ',') AS privileges,
       obj_description(c.oid, 'pg_class') AS description
FROM pg_foreign_table ft
     JOIN pg_class c ON (ftrelid = c.oid)
     JOIN pg_foreign_server s ON (ftserver = s.oid)
     JOIN pg_namespace n ON (c.relnamespace = n.oid)
     JOIN pg_roles r ON (r.oid = relowner)
WHERE nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  %s
ORDER BY nspname, relname`

// ingestForeign reads the foreign data layer. Handler procedures and
// foreign tables arrived in 9.1.
func ingestForeign(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	handler := `CASE WHEN fdwhandler = 0 THEN NULL
            ELSE fdwhandler::regproc::text END`
	if src.Version() < 90100 {
		handler = "NULL"
	}

	rows, err := src.FetchRows(ctx,
		queryf(wrappersQuery, handler, extensionFilter(src, "w.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		fdw := &schema.ForeignDataWrapper{
			Handler:   row.Str("handler"),
			Validator: row.Str("validator"),
			Options:   row.List("options"),
		}
		fdw.Name = row.Str("name")
		fillBase(&fdw.ObjectBase, row)
		if err := cat.Wrappers.Put(fdw); err != nil {
			return err
		}
	}

	rows, err = src.FetchRows(ctx, queryf(serversQuery, extensionFilter(src, "s.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		srv := &schema.ForeignServer{
			Wrapper: row.Str("wrapper"),
			Type:    row.Str("type"),
			Version: row.Str("version"),
			Options: row.List("options"),
		}
		srv.Name = row.Str("name")
		fillBase(&srv.ObjectBase, row)
		if err := cat.Servers.Put(srv); err != nil {
			return err
		}
	}

	rows, err = src.FetchRows(ctx, userMappingsQuery)
	if err != nil {
		return err
	}
	for _, row := range rows {
		um := &schema.UserMapping{
			Wrapper: row.Str("wrapper"),
			Server:  row.Str("server"),
			Options: row.List("options"),
		}
		um.Name = row.Str("role")
		if err := cat.UserMappings.Put(um); err != nil {
			return err
		}
	}

	if src.Version() < 90100 {
		return nil
	}
	rows, err = src.FetchRows(ctx, queryf(foreignTablesQuery, extensionFilter(src, "c.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		ft := &schema.ForeignTable{
			Schema:  row.Str("schema"),
			Server:  row.Str("server"),
			Options: row.List("options"),
		}
		ft.Name = row.Str("name")
		fillBase(&ft.ObjectBase, row)
		if err := cat.ForeignTables.Put(ft); err != nil {
			return err
		}
	}
	return nil
}
