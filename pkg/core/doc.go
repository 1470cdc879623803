// Package core defines the shared language of the rowboat system.
//
// This package contains:
//   - The Scalar tagged variant used for every cell value
//   - Row, Column and QueryResult types exchanged with executors
//   - Free-text coercion and row identity derivation
//   - The error taxonomy (connectivity, query, validation)
//
// The Golden Rule: pkg/core imports ONLY the stdlib.
// All other packages depend on core, not the reverse.
package core
