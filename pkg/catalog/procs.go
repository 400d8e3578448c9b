package catalog

import (
	"context"

	"github.com/stewarddb/steward/pkg/schema"
)

const functionsQuery = `
SELECT nspname AS schema, proname AS name,
       pg_get_function_identity_arguments(p.oid) AS arguments,
       pg_get_function_arguments(p.oid) AS allargs,
       pg_get_function_result(p.oid) AS returns,
       rolname AS owner, array_to_string(proacl, ',') AS privileges,
       l.lanname AS language, provolatile::text AS volatility,
       proisstrict AS strict, prosecdef AS security_definer,
       %s AS leakproof,
       procost AS cost, prorows AS rows, prosrc AS source,
       probin AS obj_file, proconfig AS configuration,
       obj_description(p.oid, 'pg_proc') AS description
FROM pg_proc p
     JOIN pg_namespace n ON (pronamespace = n.oid)
     JOIN pg_roles r ON (r.oid = proowner)
     JOIN pg_language l ON (prolang = l.oid)
WHERE %s
  AND nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  %s
ORDER BY nspname, proname`

const aggregatesQuery = `
SELECT nspname AS schema, proname AS name,
       pg_get_function_identity_arguments(p.oid) AS arguments,
       rolname AS owner, array_to_string(proacl, ',') AS privileges,
       aggtransfn::regproc::text AS sfunc, aggtranstype::regtype::text AS stype,
       aggfinalfn::regproc::text AS finalfunc, agginitval AS initcond,
       CASE WHEN aggsortop = 0 THEN NULL
            ELSE aggsortop::regoperator::text END AS sortop,
       obj_description(p.oid, 'pg_proc') AS description
FROM pg_aggregate a
     JOIN pg_proc p ON (aggfnoid = p.oid)
     JOIN pg_namespace n ON (pronamespace = n.oid)
     JOIN pg_roles r ON (r.oid = proowner)
WHERE nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  %s
ORDER BY nspname, proname`

// ingestProcs reads plain functions and aggregates. pg_proc grew prokind
// in 11 and proleakproof in 9.2; older servers use the columns those
// replaced.
func ingestProcs(ctx context.Context, src RowSource, cat *schema.Catalog) error {
	leakproof := "proleakproof"
	if src.Version() < 90200 {
		leakproof = "false"
	}
	plain := "prokind = 'f'"
	if src.Version() < 110000 {
		plain = "NOT proisagg AND NOT proiswindow"
	}

	rows, err := src.FetchRows(ctx,
		queryf(functionsQuery, leakproof, plain, extensionFilter(src, "p.oid")))
	if err != nil {
		return err
	}
	for _, row := range rows {
		fn := &schema.Function{
			ProcBase: schema.ProcBase{
				Schema:    row.Str("schema"),
				Arguments: row.Str("arguments"),
			},
			Language:        row.Str("language"),
			Returns:         row.Str("returns"),
			AllArgs:         row.Str("allargs"),
			Volatility:      row.Str("volatility"),
			Strict:          row.Bool("strict"),
			SecurityDefiner: row.Bool("security_definer"),
			Leakproof:       row.Bool("leakproof"),
			Cost:            row.Float("cost"),
			Rows:            row.Float("rows"),
			Configuration:   row.List("configuration"),
		}
		fn.Name = row.Str("name")
		fillBase(&fn.ObjectBase, row)
		if fn.AllArgs == fn.Arguments {
			fn.AllArgs = ""
		}
		// C functions keep the object file in probin and the link
		// symbol in prosrc
		if obj := row.Str("obj_file"); obj != "" {
			fn.ObjFile = obj
			fn.LinkSymbol = row.Str("source")
		} else {
			fn.Source = row.Str("source")
		}
		if err := cat.Procs.Put(fn); err != nil {
			return err
		}
	}

	aggs, err := src.FetchRows(ctx,
		queryf(aggregatesQuery, extensionFilter(src, "p.oid")))
	if err != nil {
		return err
	}
	for _, row := range aggs {
		agg := &schema.Aggregate{
			ProcBase: schema.ProcBase{
				Schema:    row.Str("schema"),
				Arguments: row.Str("arguments"),
			},
			SFunc:    row.Str("sfunc"),
			SType:    row.Str("stype"),
			InitCond: row.Str("initcond"),
			SortOp:   row.Str("sortop"),
		}
		agg.Name = row.Str("name")
		fillBase(&agg.ObjectBase, row)
		if fin := row.Str("finalfunc"); fin != "-" {
			agg.FinalFunc = fin
		}
		if err := cat.Procs.Put(agg); err != nil {
			return err
		}
	}
	return nil
}
