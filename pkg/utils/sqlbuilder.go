package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QuoteIdent returns the identifier in a form safe for inclusion in DDL.
// Plain lower-case identifiers pass through unchanged; anything else is
// double-quoted with embedded quotes doubled.
//
// Example:
//
//	QuoteIdent("events")      // events
//	QuoteIdent("MyTable")     // "MyTable"
//	QuoteIdent("odd name")    // "odd name"
func QuoteIdent(name string) string {
	if identPattern.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes a possibly schema-qualified name. An empty schema
// yields just the quoted name.
func QuoteQualified(schema, name string) string {
	if schema == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// QuoteLiteral returns the string as a single-quoted SQL literal with
// embedded quotes doubled.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// SQLBuilder provides a fluent interface for building PostgreSQL DDL
// statements. It handles identifier quoting and conditional clause building
// to reduce duplication across the schema package.
//
// Example usage:
//
//	sql := NewSQLBuilder().
//		Create("SCHEMA").
//		Name("reporting").
//		String()
//	// Output: CREATE SCHEMA reporting
type SQLBuilder struct {
	parts []string
}

// NewSQLBuilder creates a new SQLBuilder instance.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{
		parts: make([]string, 0, 10),
	}
}

// Create adds a CREATE clause with the specified object type.
func (b *SQLBuilder) Create(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "CREATE", objectType)
	return b
}

// Drop adds a DROP clause with the specified object type.
func (b *SQLBuilder) Drop(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "DROP", objectType)
	return b
}

// Alter adds an ALTER clause with the specified object type.
func (b *SQLBuilder) Alter(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "ALTER", objectType)
	return b
}

// CommentOn adds a COMMENT ON clause with the specified object type.
func (b *SQLBuilder) CommentOn(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "COMMENT", "ON", objectType)
	return b
}

// Name adds a quoted object name.
func (b *SQLBuilder) Name(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, QuoteIdent(name))
	}
	return b
}

// QualifiedName adds a quoted, optionally schema-qualified object name.
func (b *SQLBuilder) QualifiedName(schema, name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, QuoteQualified(schema, name))
	}
	return b
}

// RenameTo adds a RENAME TO clause.
func (b *SQLBuilder) RenameTo(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, "RENAME", "TO", QuoteIdent(name))
	}
	return b
}

// OwnerTo adds an OWNER TO clause.
func (b *SQLBuilder) OwnerTo(owner string) *SQLBuilder {
	if owner != "" {
		b.parts = append(b.parts, "OWNER", "TO", QuoteIdent(owner))
	}
	return b
}

// Is adds an IS clause with a quoted literal, or IS NULL when the value is
// empty. Used for COMMENT ON statements.
func (b *SQLBuilder) Is(value string) *SQLBuilder {
	if value == "" {
		b.parts = append(b.parts, "IS", "NULL")
	} else {
		b.parts = append(b.parts, "IS", QuoteLiteral(value))
	}
	return b
}

// Literal adds a single-quoted, escaped SQL string value.
func (b *SQLBuilder) Literal(value string) *SQLBuilder {
	if value != "" {
		b.parts = append(b.parts, QuoteLiteral(value))
	}
	return b
}

// Cascade adds a CASCADE clause.
func (b *SQLBuilder) Cascade() *SQLBuilder {
	b.parts = append(b.parts, "CASCADE")
	return b
}

// Raw adds raw SQL text to the builder. Use sparingly for constructs that
// don't fit the fluent pattern.
func (b *SQLBuilder) Raw(sql string) *SQLBuilder {
	if sql != "" {
		b.parts = append(b.parts, sql)
	}
	return b
}

// Rawf adds formatted raw SQL text to the builder.
func (b *SQLBuilder) Rawf(format string, args ...any) *SQLBuilder {
	b.parts = append(b.parts, fmt.Sprintf(format, args...))
	return b
}

// String builds and returns the final SQL statement.
func (b *SQLBuilder) String() string {
	return strings.Join(b.parts, " ")
}
