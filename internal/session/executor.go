package session

import (
	"context"

	"github.com/rowboat-dev/rowboat/pkg/core"
)

// Executor is the remote collaborator that runs SQL for a session. All calls
// are identified by an opaque connection ID; the session never sees
// credentials or connection parameters. Every call may fail, and no call is
// retried by this package.
type Executor interface {
	// ExecuteQuery runs a read statement against a database.
	ExecuteQuery(ctx context.Context, connectionID, database, sqlText string) (*core.QueryResult, error)

	// GetColumns returns the column metadata for a table, in ordinal order.
	GetColumns(ctx context.Context, connectionID, database, schema, table string) ([]core.Column, error)

	// GetPrimaryKeyColumns returns the primary-key column names in constraint
	// order, or an empty list when the table has no primary key.
	GetPrimaryKeyColumns(ctx context.Context, connectionID, database, schema, table string) ([]string, error)

	// InsertRow inserts one row described by explicit column/value/type
	// triples.
	InsertRow(ctx context.Context, connectionID, database, schema, table string, columns []string, values []core.Scalar, columnTypes []string) error

	// DeleteRows deletes the rows identified by the given primary-key tuples.
	DeleteRows(ctx context.Context, connectionID, database, schema, table string, primaryKeyColumns []string, primaryKeyValues [][]core.Scalar) error

	// UpdateCell sets one cell of the row identified by the primary-key
	// values.
	UpdateCell(ctx context.Context, connectionID, database, schema, table, column string, primaryKeyColumns []string, primaryKeyValues []core.Scalar, newValue core.Scalar) error
}
