package commands

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rowboat-dev/rowboat/internal/config"
	"github.com/rowboat-dev/rowboat/internal/conn"
	"github.com/rowboat-dev/rowboat/internal/history"

	_ "github.com/rowboat-dev/rowboat/pkg/adapters/duckdb"   // register adapter
	_ "github.com/rowboat-dev/rowboat/pkg/adapters/postgres" // register adapter
)

// App bundles the shared state every command needs: loaded configuration,
// the logger, and the connection machinery. The root command fills it in
// after flag parsing, before any subcommand runs.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *conn.Registry
	Secrets  *conn.SecretStore
	Pools    *conn.Pools
	Executor *conn.Executor

	histOnce sync.Once
	hist     *history.Store
	histErr  error
}

// Init wires the connection layer from a loaded configuration. Connection
// definitions are read eagerly so every command sees the same view.
func (a *App) Init(cfg *config.Config, logger *slog.Logger) error {
	a.Config = cfg
	a.Logger = logger
	a.Registry = conn.NewRegistry(cfg.ConnectionsDir(), logger)
	a.Secrets = conn.NewSecretStore(cfg.SecretsPath())
	a.Pools = conn.NewPools(a.Registry, a.Secrets, logger)
	a.Executor = conn.NewExecutor(a.Pools, logger)

	if err := a.Registry.Load(); err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}
	return nil
}

// History opens the history store on first use. Commands that never touch
// history don't create the database file.
func (a *App) History() (*history.Store, error) {
	a.histOnce.Do(func() {
		a.hist, a.histErr = history.Open(a.Config.HistoryPath(), a.Logger)
	})
	return a.hist, a.histErr
}

// Close releases whatever the command session opened.
func (a *App) Close() {
	if a.Pools != nil {
		a.Pools.CloseAll()
	}
	if a.hist != nil {
		_ = a.hist.Close()
	}
}

// resolveConnection accepts either a connection ID or a connection name.
func (a *App) resolveConnection(ref string) (conn.Connection, error) {
	if c, ok := a.Registry.Get(ref); ok {
		return c, nil
	}
	if c, ok := a.Registry.FindByName(ref); ok {
		return c, nil
	}
	return conn.Connection{}, fmt.Errorf("no connection named %q (try 'rowboat connections list')", ref)
}
