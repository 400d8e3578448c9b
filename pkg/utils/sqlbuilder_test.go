package utils_test

import (
	"testing"

	"github.com/stewarddb/steward/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain lowercase", input: "users", expected: "users"},
		{name: "with underscore", input: "user_accounts", expected: "user_accounts"},
		{name: "mixed case", input: "Users", expected: `"Users"`},
		{name: "reserved characters", input: "select all", expected: `"select all"`},
		{name: "leading digit", input: "1st", expected: `"1st"`},
		{name: "embedded quote", input: `we"ird`, expected: `"we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, utils.QuoteIdent(tt.input))
		})
	}
}

func TestQuoteQualified(t *testing.T) {
	require.Equal(t, "public.users", utils.QuoteQualified("public", "users"))
	require.Equal(t, `"My Schema"."My Table"`, utils.QuoteQualified("My Schema", "My Table"))
}

func TestQuoteLiteral(t *testing.T) {
	require.Equal(t, "'hello'", utils.QuoteLiteral("hello"))
	require.Equal(t, "'it''s'", utils.QuoteLiteral("it's"))
}

func TestSQLBuilder(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() *utils.SQLBuilder
		expected string
	}{
		{
			name:     "CREATE SCHEMA",
			builder:  func() *utils.SQLBuilder { return utils.NewSQLBuilder().Create("SCHEMA").Name("reporting") },
			expected: "CREATE SCHEMA reporting",
		},
		{
			name: "DROP TYPE CASCADE",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Drop("TYPE").QualifiedName("public", "inet2").Cascade()
			},
			expected: "DROP TYPE public.inet2 CASCADE",
		},
		{
			name: "ALTER RENAME",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Alter("DOMAIN").QualifiedName("sd", "dom1").RenameTo("dom2")
			},
			expected: "ALTER DOMAIN sd.dom1 RENAME TO dom2",
		},
		{
			name: "OWNER TO",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Alter("SCHEMA").Name("s1").OwnerTo("alice")
			},
			expected: "ALTER SCHEMA s1 OWNER TO alice",
		},
		{
			name: "COMMENT",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().CommentOn("SCHEMA").Name("s1").Is("a schema")
			},
			expected: "COMMENT ON SCHEMA s1 IS 'a schema'",
		},
		{
			name: "COMMENT removal",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().CommentOn("SCHEMA").Name("s1").Is("")
			},
			expected: "COMMENT ON SCHEMA s1 IS NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.builder().String())
		})
	}
}
