// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/rowboat-dev/rowboat/pkg/dialect"

// Config is the PostgreSQL dialect configuration.
var Config = &dialect.Dialect{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   dialect.PlaceholderDollar,
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
