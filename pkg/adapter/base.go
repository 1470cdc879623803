package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rowboat-dev/rowboat/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlText string, args ...any) error {
	if b.DB == nil {
		return &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}
	if _, err := b.DB.ExecContext(ctx, sqlText, args...); err != nil {
		return &core.QueryError{Err: err}
	}
	return nil
}

// Query executes a SQL statement, materializes every row into scalar values
// and records the wall-clock execution time.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlText string, args ...any) (*core.QueryResult, error) {
	if b.DB == nil {
		return nil, &core.ConnectivityError{Err: fmt.Errorf("database connection not established")}
	}

	start := time.Now()
	rows, err := b.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, &core.QueryError{Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var out []core.Row
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(core.Row, len(columns))
		for i, v := range raw {
			row[i] = ScalarFromDriver(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.QueryError{Err: err}
	}

	return &core.QueryResult{
		Columns:         columns,
		Rows:            out,
		RowCount:        len(out),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// ScalarFromDriver converts a database/sql driver value into a scalar.
// Numeric driver types collapse to the number kind, byte slices are treated
// as text unless they hold a JSON object or array, and anything unrecognized
// falls back to its fmt representation.
func ScalarFromDriver(v any) core.Scalar {
	switch t := v.(type) {
	case nil:
		return core.Null()
	case bool:
		return core.Bool(t)
	case int64:
		return core.Number(float64(t))
	case float64:
		return core.Number(t)
	case string:
		return core.String(t)
	case []byte:
		if len(t) > 0 && (t[0] == '{' || t[0] == '[') && json.Valid(t) {
			return core.Opaque(json.RawMessage(append([]byte(nil), t...)))
		}
		return core.String(string(t))
	case time.Time:
		return core.String(t.Format(time.RFC3339Nano))
	default:
		return core.String(fmt.Sprintf("%v", t))
	}
}
