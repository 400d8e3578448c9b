package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/stewarddb/steward/pkg/schema"
)

// Introspect reads every supported object kind from the source and returns
// the linked catalog.
func Introspect(ctx context.Context, src RowSource) (*schema.Catalog, error) {
	cat := schema.NewCatalog()
	ingestors := []func(context.Context, RowSource, *schema.Catalog) error{
		ingestSchemas,
		ingestLanguages,
		ingestTypes,
		ingestRelations,
		ingestColumns,
		ingestConstraints,
		ingestProcs,
		ingestForeign,
	}
	for _, ingest := range ingestors {
		if err := ingest(ctx, src, cat); err != nil {
			return nil, err
		}
	}
	if err := cat.Link(); err != nil {
		return nil, err
	}
	return cat, nil
}

// extensionFilter excludes objects owned by extensions. pg_depend only
// records extension membership from 9.1 on.
func extensionFilter(src RowSource, oidExpr string) string {
	if src.Version() < 90100 {
		return ""
	}
	return fmt.Sprintf(
		"AND %s NOT IN (SELECT objid FROM pg_depend WHERE deptype = 'e')", oidExpr)
}

// queryf interpolates version-gated fragments into a query template.
func queryf(query string, fragments ...any) string {
	return strings.TrimSpace(fmt.Sprintf(query, fragments...))
}

// splitACL splits an array_to_string'd aclitem[] into raw items.
func splitACL(acl string) []string {
	if acl == "" {
		return nil
	}
	return strings.Split(acl, ",")
}

// fillBase copies the owner, privileges and description columns every
// ingestor selects.
func fillBase(b *schema.ObjectBase, row Row) {
	b.Owner = row.Str("owner")
	b.Privileges = splitACL(row.Str("privileges"))
	b.Description = row.Str("description")
}
