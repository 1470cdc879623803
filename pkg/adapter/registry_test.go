package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-dev/rowboat/pkg/core"
)

type stubAdapter struct {
	BaseSQLAdapter
	Adapter
}

// Close, Exec, and Query resolve the ambiguous selectors between the
// embedded BaseSQLAdapter and Adapter.
func (s *stubAdapter) Close() error { return s.BaseSQLAdapter.Close() }

func (s *stubAdapter) Exec(ctx context.Context, sqlText string, args ...any) error {
	return s.BaseSQLAdapter.Exec(ctx, sqlText, args...)
}

func (s *stubAdapter) Query(ctx context.Context, sqlText string, args ...any) (*core.QueryResult, error) {
	return s.BaseSQLAdapter.Query(ctx, sqlText, args...)
}

func TestRegistry(t *testing.T) {
	Register("stub-engine", func(logger *slog.Logger) Adapter {
		return &stubAdapter{}
	})

	assert.True(t, IsRegistered("stub-engine"))
	assert.False(t, IsRegistered("no-such-engine"))
	assert.Contains(t, List(), "stub-engine")

	factory, ok := Get("stub-engine")
	require.True(t, ok)
	assert.NotNil(t, factory(nil))
}

func TestNew(t *testing.T) {
	Register("stub-engine", func(logger *slog.Logger) Adapter {
		return &stubAdapter{}
	})

	tests := []struct {
		name      string
		cfg       Config
		expectErr string
	}{
		{name: "registered type", cfg: Config{Type: "stub-engine"}},
		{name: "missing type", cfg: Config{}, expectErr: "adapter type not specified"},
		{name: "unknown type", cfg: Config{Type: "oracle"}, expectErr: `unknown adapter type "oracle"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg, nil)
			if tt.expectErr == "" {
				require.NoError(t, err)
				assert.NotNil(t, a)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestUnknownAdapterError(t *testing.T) {
	err := &UnknownAdapterError{Type: "oracle", Available: []string{"duckdb", "postgres"}}
	assert.Contains(t, err.Error(), "oracle")
	assert.Contains(t, err.Error(), "postgres")
}
