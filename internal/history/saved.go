package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SavedQuery is a named query kept around for reuse.
type SavedQuery struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SQL       string    `json:"sql"`
	Database  string    `json:"database,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveQuery inserts or replaces a saved query. A query without an ID is
// assigned one.
func (s *Store) SaveQuery(ctx context.Context, q SavedQuery) (SavedQuery, error) {
	if q.Name == "" {
		return SavedQuery{}, fmt.Errorf("saved query name is required")
	}
	if q.SQL == "" {
		return SavedQuery{}, fmt.Errorf("saved query sql is required")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_queries (id, name, sql_text, database_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			sql_text = excluded.sql_text,
			database_name = excluded.database_name`,
		q.ID, q.Name, q.SQL, q.Database, q.CreatedAt)
	if err != nil {
		return SavedQuery{}, fmt.Errorf("failed to save query: %w", err)
	}
	return q, nil
}

// GetQuery returns a saved query by ID.
func (s *Store) GetQuery(ctx context.Context, id string) (SavedQuery, error) {
	var q SavedQuery
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, sql_text, database_name, created_at
		FROM saved_queries WHERE id = ?`, id).
		Scan(&q.ID, &q.Name, &q.SQL, &q.Database, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedQuery{}, fmt.Errorf("no saved query with id %q", id)
	}
	if err != nil {
		return SavedQuery{}, fmt.Errorf("failed to get saved query: %w", err)
	}
	return q, nil
}

// ListQueries returns all saved queries sorted case-insensitively by name.
func (s *Store) ListQueries(ctx context.Context) ([]SavedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sql_text, database_name, created_at
		FROM saved_queries
		ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var queries []SavedQuery
	for rows.Next() {
		var q SavedQuery
		if err := rows.Scan(&q.ID, &q.Name, &q.SQL, &q.Database, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved queries: %w", err)
	}
	return queries, nil
}

// DeleteQuery removes a saved query.
func (s *Store) DeleteQuery(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM saved_queries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete saved query: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no saved query with id %q", id)
	}
	return nil
}
