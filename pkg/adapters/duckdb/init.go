// Package duckdb provides the DuckDB adapter for rowboat.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/rowboat-dev/rowboat/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/rowboat-dev/rowboat/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
