package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rowboat-dev/rowboat/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the browsing API over HTTP.

Sessions, connections, ad-hoc queries, history and saved queries are all
exposed as JSON endpoints. The server watches the connections directory and
picks up edited connection files without a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hist, err := app.History()
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Addr:            app.Config.Server.Addr,
				PageSize:        app.Config.PageSize,
				DebounceWindow:  app.Config.DebounceWindow(),
				ShutdownTimeout: app.Config.Server.ShutdownTimeout(),
				Registry:        app.Registry,
				Secrets:         app.Secrets,
				Pools:           app.Pools,
				Executor:        app.Executor,
				History:         hist,
				Logger:          app.Logger,
			})

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", app.Config.Server.Addr)
			return srv.Serve(ctx)
		},
	}
}
