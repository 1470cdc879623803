// Package postgres provides the PostgreSQL adapter for rowboat.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/rowboat-dev/rowboat/pkg/adapter"
	"github.com/rowboat-dev/rowboat/pkg/core"
	"github.com/rowboat-dev/rowboat/pkg/dialect"
	pgdialect "github.com/rowboat-dev/rowboat/pkg/dialects/postgres"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the PostgreSQL dialect configuration.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Config
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildDSN(cfg)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectivityError{Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN constructs a key=value PostgreSQL connection string.
func buildDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "prefer"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// GetColumns returns a table's columns in ordinal order, with primary-key
// membership resolved via the table's key constraints.
func (a *Adapter) GetColumns(ctx context.Context, schema, table string) ([]core.Column, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}
	if schema == "" {
		schema = pgdialect.Config.DefaultSchema
	}

	query := `
		SELECT
			column_name,
			data_type,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	rows, err := a.DB.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", schema, table)
	}

	pk, err := a.GetPrimaryKeyColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		for _, name := range pk {
			if columns[i].Name == name {
				columns[i].PrimaryKey = true
			}
		}
	}
	return columns, nil
}

// GetPrimaryKeyColumns returns the primary-key column names in constraint
// order, or an empty list when the table has none.
func (a *Adapter) GetPrimaryKeyColumns(ctx context.Context, schema, table string) ([]string, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}
	if schema == "" {
		schema = pgdialect.Config.DefaultSchema
	}

	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`
	rows, err := a.DB.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		pk = append(pk, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key columns: %w", err)
	}
	return pk, nil
}

// ListDatabases returns the non-template databases of the server.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}

	rows, err := a.DB.QueryContext(ctx,
		"SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname")
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating databases: %w", err)
	}
	return names, nil
}

// ListSchemaObjects returns the tables and views of the connected database,
// excluding system schemas.
func (a *Adapter) ListSchemaObjects(ctx context.Context) ([]core.SchemaObject, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}

	query := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name
	`
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema objects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var objects []core.SchemaObject
	for rows.Next() {
		var obj core.SchemaObject
		var tableType string
		if err := rows.Scan(&obj.Schema, &obj.Name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan schema object: %w", err)
		}
		if tableType == "VIEW" {
			obj.ObjectType = "view"
		} else {
			obj.ObjectType = "table"
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema objects: %w", err)
	}
	return objects, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
