package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rowboat-dev/rowboat/internal/history"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the query history",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent queries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.History()
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(history is empty)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"When", "Rows", "ms", "SQL"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
					e.RowCount,
					e.DurationMs,
					truncateSQL(e.SQL, 80),
				})
			}
			t.Render()
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to show")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.History()
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	})

	return cmd
}

// NewQueriesCommand creates the saved-queries command group.
func NewQueriesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Manage saved queries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.History()
			if err != nil {
				return err
			}
			queries, err := store.ListQueries(cmd.Context())
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no saved queries)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "SQL", "ID"})
			for _, q := range queries {
				t.AppendRow(table.Row{q.Name, truncateSQL(q.SQL, 60), q.ID})
			}
			t.Render()
			return nil
		},
	})

	var database string
	saveCmd := &cobra.Command{
		Use:   "save <name> <SQL>",
		Short: "Save a query under a name",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.History()
			if err != nil {
				return err
			}
			saved, err := store.SaveQuery(cmd.Context(), history.SavedQuery{
				Name:     args[0],
				SQL:      strings.Join(args[1:], " "),
				Database: database,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved query %q (%s)\n", saved.Name, saved.ID)
			return nil
		},
	}
	saveCmd.Flags().StringVarP(&database, "database", "d", "", "Database the query targets")
	cmd.AddCommand(saveCmd)

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved query",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.History()
			if err != nil {
				return err
			}
			if err := store.DeleteQuery(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	})

	return cmd
}

func truncateSQL(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
