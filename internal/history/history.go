package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxEntries caps the history table; older rows are pruned on every insert.
const maxEntries = 200

// Entry is one executed query.
type Entry struct {
	ID           int64     `json:"id"`
	ConnectionID string    `json:"connection_id"`
	Database     string    `json:"database,omitempty"`
	SQL          string    `json:"sql"`
	RowCount     int       `json:"row_count"`
	DurationMs   int64     `json:"duration_ms"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// Record appends an entry and prunes everything beyond the newest
// maxEntries rows.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (connection_id, database_name, sql_text, row_count, duration_ms, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ConnectionID, e.Database, e.SQL, e.RowCount, e.DurationMs, e.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY executed_at DESC, id DESC LIMIT ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	if pruned, err := res.RowsAffected(); err == nil && pruned > 0 {
		s.logger.Debug("history pruned", slog.Int64("rows", pruned))
	}
	return nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything (itself capped at maxEntries by Record).
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = maxEntries
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, connection_id, database_name, sql_text, row_count, duration_ms, executed_at
		FROM history
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ConnectionID, &e.Database, &e.SQL, &e.RowCount, &e.DurationMs, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Clear deletes all history entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
