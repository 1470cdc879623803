// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import "github.com/rowboat-dev/rowboat/pkg/dialect"

// Config is the DuckDB dialect configuration.
var Config = &dialect.Dialect{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   dialect.PlaceholderQuestion,
	Identifiers: dialect.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `""`,
	},
	SupportsIlike:        true,
	SupportsCastOperator: true,
}

func init() {
	dialect.Register(Config)
}
