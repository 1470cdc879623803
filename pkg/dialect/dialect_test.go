package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-dev/rowboat/pkg/dialect"
	_ "github.com/rowboat-dev/rowboat/pkg/dialects/duckdb"
	_ "github.com/rowboat-dev/rowboat/pkg/dialects/postgres"
)

func TestRegistry(t *testing.T) {
	names := dialect.List()
	assert.Contains(t, names, "postgres")
	assert.Contains(t, names, "duckdb")

	_, ok := dialect.Get("mysql")
	assert.False(t, ok)

	// Lookup is case-insensitive.
	d, ok := dialect.Get("PostgreS")
	require.True(t, ok)
	assert.Equal(t, "postgres", d.Name)
}

func TestDialect_QuoteIdentifier(t *testing.T) {
	d, ok := dialect.Get("postgres")
	require.True(t, ok)

	assert.Equal(t, `"orders"`, d.QuoteIdentifier("orders"))
	assert.Equal(t, `"weird""name"`, d.QuoteIdentifier(`weird"name`))
	assert.Equal(t, `"public"."orders"`, d.QuoteQualified("public", "orders"))
	assert.Equal(t, `"orders"`, d.QuoteQualified("", "orders"))
}

func TestDialect_FormatPlaceholder(t *testing.T) {
	pg, _ := dialect.Get("postgres")
	duck, _ := dialect.Get("duckdb")

	assert.Equal(t, "$1", pg.FormatPlaceholder(1))
	assert.Equal(t, "$17", pg.FormatPlaceholder(17))
	assert.Equal(t, "?", duck.FormatPlaceholder(1))
	assert.Equal(t, "?", duck.FormatPlaceholder(17))
}

func TestDialect_Predicates(t *testing.T) {
	pg, _ := dialect.Get("postgres")

	assert.Equal(t, `"a"::text`, pg.CastToText(`"a"`))
	assert.Equal(t, `"a"::text ILIKE '%x%'`, pg.ContainsPattern(`"a"::text`, `'%x%'`))

	noIlike := &dialect.Dialect{Identifiers: dialect.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`}}
	assert.Equal(t, `CAST("a" AS VARCHAR)`, noIlike.CastToText(`"a"`))
	assert.Equal(t, `LOWER(x) LIKE LOWER('%y%')`, noIlike.ContainsPattern("x", "'%y%'"))
}
