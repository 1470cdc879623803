// Package postgres provides the PostgreSQL adapter for rowboat.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/rowboat-dev/rowboat/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/rowboat-dev/rowboat/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
