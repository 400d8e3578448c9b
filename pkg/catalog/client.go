// Package catalog reads the system catalogs of a live PostgreSQL database
// and builds the schema object graph from them.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type (
	// Row is one catalog row, keyed by output column name. Missing and
	// NULL columns read as zero values so version-gated columns need no
	// special casing in the ingestors.
	Row map[string]any

	// RowSource yields catalog rows. Tests substitute a canned
	// implementation for the live connection.
	RowSource interface {
		// FetchRows runs a catalog query and returns all rows.
		FetchRows(ctx context.Context, query string) ([]Row, error)

		// Version is the server version number, e.g. 150004.
		Version() int
	}

	// Client is a RowSource over a live connection.
	Client struct {
		conn    *pgx.Conn
		version int
	}
)

var _ RowSource = (*Client)(nil)

// Connect opens a connection and probes the server version.
func Connect(ctx context.Context, dsn string) (*Client, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}

	var version string
	if err := conn.QueryRow(ctx, "SHOW server_version_num").Scan(&version); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrap(err, "probing server version")
	}
	n, err := strconv.Atoi(version)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrapf(err, "bad server_version_num %q", version)
	}
	return &Client{conn: conn, version: n}, nil
}

// Close releases the connection.
func (c *Client) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Version implements RowSource.
func (c *Client) Version() int { return c.version }

// FetchRows implements RowSource.
func (c *Client) FetchRows(ctx context.Context, query string) ([]Row, error) {
	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "querying catalog")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "reading catalog row")
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, errors.Wrap(rows.Err(), "reading catalog rows")
}

// Str returns a column as a string, "" when absent or NULL.
func (r Row) Str(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Bool returns a column as a bool, false when absent or NULL.
func (r Row) Bool(col string) bool {
	b, _ := r[col].(bool)
	return b
}

// Int returns a column as an int, 0 when absent or NULL.
func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns a column as a float64, 0 when absent or NULL.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// List returns an array column as strings, nil when absent or NULL.
func (r Row) List(col string) []string {
	switch v := r[col].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
