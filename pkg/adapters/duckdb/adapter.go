// Package duckdb provides the DuckDB adapter for rowboat. DuckDB runs
// embedded; the connection "host" is a database file path, or memory when
// no path is given.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"github.com/rowboat-dev/rowboat/pkg/adapter"
	"github.com/rowboat-dev/rowboat/pkg/core"
	"github.com/rowboat-dev/rowboat/pkg/dialect"
	duckdialect "github.com/rowboat-dev/rowboat/pkg/dialects/duckdb"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB dialect configuration.
func (a *Adapter) Dialect() *dialect.Dialect {
	return duckdialect.Config
}

// Connect opens the DuckDB database at cfg.Path, or an in-memory database
// when the path is empty.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening duckdb database", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectivityError{Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetColumns returns a table's columns in ordinal order, with primary-key
// membership resolved via duckdb_constraints.
func (a *Adapter) GetColumns(ctx context.Context, schema, table string) ([]core.Column, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}
	if schema == "" {
		schema = duckdialect.Config.DefaultSchema
	}

	query := `
		SELECT
			column_name,
			data_type,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
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

// GetPrimaryKeyColumns reads the primary-key constraint from
// duckdb_constraints. The constraint's column list is already in key order.
func (a *Adapter) GetPrimaryKeyColumns(ctx context.Context, schema, table string) ([]string, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}
	if schema == "" {
		schema = duckdialect.Config.DefaultSchema
	}

	query := `
		SELECT unnest(constraint_column_names)
		FROM duckdb_constraints()
		WHERE constraint_type = 'PRIMARY KEY'
			AND schema_name = ?
			AND table_name = ?
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

// ListDatabases returns the attached databases.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}

	rows, err := a.DB.QueryContext(ctx,
		"SELECT database_name FROM duckdb_databases() WHERE NOT internal ORDER BY database_name")
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

// ListSchemaObjects returns the tables and views of the open database.
func (a *Adapter) ListSchemaObjects(ctx context.Context) ([]core.SchemaObject, error) {
	if a.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}

	query := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
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
