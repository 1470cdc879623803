// Package dialect provides SQL dialect configuration for rowboat.
//
// This package contains the public contract for dialect definitions used by
// the query compiler and the adapters. Concrete dialect implementations are
// registered from pkg/dialects/*/ packages.
package dialect

import (
	"strconv"
	"strings"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence: "", ``, ]]
}

// Dialect holds the static configuration for a SQL dialect.
// This is pure data — accessible without a database connection.
type Dialect struct {
	// Name is the dialect identifier (e.g., "duckdb", "postgres")
	Name string

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Identifiers defines quoting rules
	Identifiers IdentifierConfig

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// SupportsIlike reports whether the dialect has a native case-insensitive LIKE.
	SupportsIlike bool

	// SupportsCastOperator reports whether expr::type casts are accepted.
	SupportsCastOperator bool
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
// The end-quote character is escaped so a hostile identifier cannot break out
// of the quoting.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteQualified quotes a schema-qualified table reference.
func (d *Dialect) QuoteQualified(schema, name string) string {
	if schema == "" {
		return d.QuoteIdentifier(name)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(name)
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// CastToText renders an expression cast to the dialect's text type.
func (d *Dialect) CastToText(expr string) string {
	if d.SupportsCastOperator {
		return expr + "::text"
	}
	return "CAST(" + expr + " AS VARCHAR)"
}

// ContainsPattern renders a case-insensitive "haystack contains needle"
// predicate over an already-escaped pattern literal.
func (d *Dialect) ContainsPattern(expr, pattern string) string {
	if d.SupportsIlike {
		return expr + " ILIKE " + pattern
	}
	return "LOWER(" + expr + ") LIKE LOWER(" + pattern + ")"
}
