// Package adapter defines the database adapter contract for rowboat.
//
// An adapter wraps one live database connection and exposes the handful of
// operations the table browser needs: running SQL, introspecting columns and
// primary keys, and listing databases and schema objects. Concrete adapter
// implementations live in pkg/adapters/ subdirectories and register
// themselves via init().
package adapter

import (
	"context"

	"github.com/rowboat-dev/rowboat/pkg/core"
	"github.com/rowboat-dev/rowboat/pkg/dialect"
)

// Config holds the parameters needed to open one database connection.
// Server engines use Host/Port/Database/Username/Password; embedded engines
// use Path. Options carries engine-specific settings such as sslmode.
type Config struct {
	Type     string            `koanf:"type" json:"type"`
	Host     string            `koanf:"host" json:"host,omitempty"`
	Port     int               `koanf:"port" json:"port,omitempty"`
	Database string            `koanf:"database" json:"database,omitempty"`
	Username string            `koanf:"username" json:"username,omitempty"`
	Password string            `koanf:"password" json:"-"`
	Path     string            `koanf:"path" json:"path,omitempty"`
	Options  map[string]string `koanf:"options" json:"options,omitempty"`
}

// Adapter is the interface every database adapter implements.
type Adapter interface {
	// Connect establishes the connection described by cfg and verifies it
	// with a ping.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Query runs a statement that returns rows. args bind to the dialect's
	// placeholders.
	Query(ctx context.Context, sqlText string, args ...any) (*core.QueryResult, error)

	// Exec runs a statement that returns no rows (INSERT, UPDATE, DELETE).
	Exec(ctx context.Context, sqlText string, args ...any) error

	// GetColumns returns a table's columns in ordinal order, with primary-key
	// membership marked.
	GetColumns(ctx context.Context, schema, table string) ([]core.Column, error)

	// GetPrimaryKeyColumns returns the primary-key column names in constraint
	// order, or an empty list when the table has none.
	GetPrimaryKeyColumns(ctx context.Context, schema, table string) ([]string, error)

	// ListDatabases returns the databases visible on this connection.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListSchemaObjects returns the tables and views of the connected
	// database.
	ListSchemaObjects(ctx context.Context) ([]core.SchemaObject, error)

	// Dialect returns the SQL dialect configuration for this adapter.
	Dialect() *dialect.Dialect
}
