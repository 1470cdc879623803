package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rowboat-dev/rowboat/internal/conn"
)

// NewConnectionsCommand creates the connections command group.
func NewConnectionsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage database connections",
		Long: `Manage the connection definitions rowboat knows about.

Each connection is a YAML file in the connections directory; passwords are
kept separately and never written into connection files.`,
	}

	cmd.AddCommand(newConnectionsListCommand(app))
	cmd.AddCommand(newConnectionsAddCommand(app))
	cmd.AddCommand(newConnectionsRemoveCommand(app))
	cmd.AddCommand(newConnectionsTestCommand(app))

	return cmd
}

func newConnectionsListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			connections := app.Registry.List()
			if len(connections) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No connections configured (try 'rowboat connections add')")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Host", "Database", "ID"})
			for _, c := range connections {
				host := c.Host
				if c.Type == "duckdb" {
					host = c.Path
				}
				t.AppendRow(table.Row{c.Name, c.Type, host, c.Database, c.ID})
			}
			t.Render()
			return nil
		},
	}
}

type addConnectionOptions struct {
	connType string
	host     string
	port     int
	database string
	username string
	password string
	path     string
}

func newConnectionsAddCommand(app *App) *cobra.Command {
	opts := &addConnectionOptions{}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a connection",
		Example: `  # A local postgres server
  rowboat connections add local --type postgres --host localhost --database app --username app --password secret

  # A duckdb file
  rowboat connections add warehouse --type duckdb --path ./warehouse.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := app.Registry.Save(conn.Connection{
				Name:     args[0],
				Type:     opts.connType,
				Host:     opts.host,
				Port:     opts.port,
				Database: opts.database,
				Username: opts.username,
				Path:     opts.path,
			})
			if err != nil {
				return err
			}
			if opts.password != "" {
				if err := app.Secrets.Set(saved.ID, opts.password); err != nil {
					return fmt.Errorf("failed to store password: %w", err)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added connection %q (%s)\n", saved.Name, saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.connType, "type", "postgres", "Connection type (postgres, duckdb)")
	cmd.Flags().StringVar(&opts.host, "host", "", "Server host")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Server port")
	cmd.Flags().StringVar(&opts.database, "database", "", "Database name")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (stored outside the connection file)")
	cmd.Flags().StringVar(&opts.path, "path", "", "Database file path (duckdb)")

	return cmd
}

func newConnectionsRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connection, err := app.resolveConnection(args[0])
			if err != nil {
				return err
			}
			if err := app.Registry.Remove(connection.ID); err != nil {
				return err
			}
			app.Pools.CloseConnection(connection.ID)
			if err := app.Secrets.Delete(connection.ID); err != nil {
				return fmt.Errorf("failed to delete stored password: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed connection %q\n", connection.Name)
			return nil
		},
	}
}

func newConnectionsTestCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "test <name>",
		Short: "Verify a connection works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connection, err := app.resolveConnection(args[0])
			if err != nil {
				return err
			}
			if err := app.Pools.Connect(cmd.Context(), connection.ID); err != nil {
				return fmt.Errorf("connection %q failed: %w", connection.Name, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connection %q OK\n", connection.Name)
			return nil
		},
	}
}
