package conn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rowboat-dev/rowboat/pkg/adapter"
)

// Pools owns one live adapter per (connection, database) pair. The primary
// database of a connection is keyed by the bare connection ID; sibling
// databases on the same server are keyed "connID:database". Pools are opened
// lazily on first use and closed eagerly whenever the underlying connection
// definition changes.
type Pools struct {
	registry *Registry
	secrets  *SecretStore
	logger   *slog.Logger

	mu    sync.Mutex
	pools map[string]adapter.Adapter
}

// NewPools creates a pool manager over a registry and secret store. If
// logger is nil, a discard logger is used.
func NewPools(registry *Registry, secrets *SecretStore, logger *slog.Logger) *Pools {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pools{
		registry: registry,
		secrets:  secrets,
		logger:   logger,
		pools:    make(map[string]adapter.Adapter),
	}
}

func poolKey(connectionID, database string) string {
	if database == "" {
		return connectionID
	}
	return connectionID + ":" + database
}

// Adapter returns the live adapter for a connection, opening it on first
// use. An empty database selects the connection's own database.
func (p *Pools) Adapter(ctx context.Context, connectionID, database string) (adapter.Adapter, error) {
	key := poolKey(connectionID, database)

	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.pools[key]; ok {
		return a, nil
	}

	conn, ok := p.registry.Get(connectionID)
	if !ok {
		return nil, fmt.Errorf("no connection with id %q", connectionID)
	}
	password, err := p.secrets.Get(connectionID)
	if err != nil {
		return nil, err
	}

	a, err := adapter.New(conn.AdapterConfig(password, database), p.logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, conn.AdapterConfig(password, database)); err != nil {
		return nil, err
	}

	p.logger.Debug("pool opened",
		slog.String("connection", conn.Name),
		slog.String("key", key))
	p.pools[key] = a
	return a, nil
}

// Connect eagerly opens the primary pool for a connection and validates it
// with a trivial query.
func (p *Pools) Connect(ctx context.Context, connectionID string) error {
	a, err := p.Adapter(ctx, connectionID, "")
	if err != nil {
		return err
	}
	if _, err := a.Query(ctx, "SELECT 1"); err != nil {
		p.CloseConnection(connectionID)
		return err
	}
	return nil
}

// CloseConnection closes the primary pool and every sibling-database pool of
// one connection. Called when a connection is updated, removed, or
// explicitly disconnected.
func (p *Pools) CloseConnection(connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := connectionID + ":"
	for key, a := range p.pools {
		if key != connectionID && !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := a.Close(); err != nil {
			p.logger.Warn("failed to close pool",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		delete(p.pools, key)
	}
}

// CloseAll closes every open pool. Called on shutdown.
func (p *Pools) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, a := range p.pools {
		if err := a.Close(); err != nil {
			p.logger.Warn("failed to close pool",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		delete(p.pools, key)
	}
}

// Open reports whether a pool is currently open for the given pair.
func (p *Pools) Open(connectionID, database string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pools[poolKey(connectionID, database)]
	return ok
}
