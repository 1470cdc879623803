package conn

import (
	"context"
	"log/slog"

	"github.com/rowboat-dev/rowboat/internal/query"
	"github.com/rowboat-dev/rowboat/pkg/adapter"
	"github.com/rowboat-dev/rowboat/pkg/core"
)

// AdapterProvider yields the live adapter for a (connection, database)
// pair. Pools implements it; tests substitute a fake.
type AdapterProvider interface {
	Adapter(ctx context.Context, connectionID, database string) (adapter.Adapter, error)
}

// Executor runs session SQL against pooled adapters. Reads pass through
// verbatim; writes are compiled per the adapter's dialect and always
// parameterized.
type Executor struct {
	pools  AdapterProvider
	logger *slog.Logger
}

// NewExecutor creates an executor over a pool provider. If logger is nil, a
// discard logger is used.
func NewExecutor(pools AdapterProvider, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{pools: pools, logger: logger}
}

// ExecuteQuery runs a read statement and returns its materialized result.
func (e *Executor) ExecuteQuery(ctx context.Context, connectionID, database, sqlText string) (*core.QueryResult, error) {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return nil, err
	}
	res, err := a.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query executed",
		slog.Int("rows", res.RowCount),
		slog.Int64("duration_ms", res.ExecutionTimeMs))
	return res, nil
}

// GetColumns returns a table's columns in ordinal order.
func (e *Executor) GetColumns(ctx context.Context, connectionID, database, schema, table string) ([]core.Column, error) {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return nil, err
	}
	return a.GetColumns(ctx, schema, table)
}

// GetPrimaryKeyColumns returns a table's primary-key column names in
// constraint order.
func (e *Executor) GetPrimaryKeyColumns(ctx context.Context, connectionID, database, schema, table string) ([]string, error) {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return nil, err
	}
	return a.GetPrimaryKeyColumns(ctx, schema, table)
}

// InsertRow inserts one row described by explicit column/value/type triples.
func (e *Executor) InsertRow(ctx context.Context, connectionID, database, schema, table string, columns []string, values []core.Scalar, columnTypes []string) error {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return err
	}
	sqlText := query.NewCompiler(a.Dialect()).Insert(schema, table, columns, columnTypes)
	return a.Exec(ctx, sqlText, scalarArgs(values)...)
}

// DeleteRows deletes the rows identified by the given primary-key tuples.
func (e *Executor) DeleteRows(ctx context.Context, connectionID, database, schema, table string, primaryKeyColumns []string, primaryKeyValues [][]core.Scalar) error {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return err
	}
	sqlText := query.NewCompiler(a.Dialect()).DeleteRows(schema, table, primaryKeyColumns, len(primaryKeyValues))
	var args []any
	for _, tuple := range primaryKeyValues {
		args = append(args, scalarArgs(tuple)...)
	}
	return a.Exec(ctx, sqlText, args...)
}

// UpdateCell sets one cell of the row identified by the primary-key values.
func (e *Executor) UpdateCell(ctx context.Context, connectionID, database, schema, table, column string, primaryKeyColumns []string, primaryKeyValues []core.Scalar, newValue core.Scalar) error {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return err
	}
	sqlText := query.NewCompiler(a.Dialect()).UpdateCell(schema, table, column, primaryKeyColumns)
	args := append([]any{newValue.Value()}, scalarArgs(primaryKeyValues)...)
	return a.Exec(ctx, sqlText, args...)
}

// ListDatabases returns the databases visible on a connection.
func (e *Executor) ListDatabases(ctx context.Context, connectionID string) ([]string, error) {
	a, err := e.pools.Adapter(ctx, connectionID, "")
	if err != nil {
		return nil, err
	}
	return a.ListDatabases(ctx)
}

// ListSchemaObjects returns the tables and views of a database.
func (e *Executor) ListSchemaObjects(ctx context.Context, connectionID, database string) ([]core.SchemaObject, error) {
	a, err := e.pools.Adapter(ctx, connectionID, database)
	if err != nil {
		return nil, err
	}
	return a.ListSchemaObjects(ctx)
}

func scalarArgs(values []core.Scalar) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v.Value()
	}
	return args
}
