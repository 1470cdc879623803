package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/rowboat-dev/rowboat/internal/history"
	"github.com/rowboat-dev/rowboat/pkg/core"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Database string
	Format   string
	Input    string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(app *App) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <connection> [SQL]",
		Short: "Run SQL against a connection",
		Long: `Execute SQL against a configured connection.

Statements can be passed as an argument, read from a file or stdin, or typed
into an interactive REPL. Every executed statement is recorded in the query
history.`,
		Example: `  # Execute SQL directly
  rowboat query local "SELECT * FROM users LIMIT 10"

  # Read SQL from a file
  rowboat query local --input report.sql

  # Output as JSON
  rowboat query local "SELECT * FROM orders" --format json

  # Interactive mode
  rowboat query local`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, app, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "Database to query (default: the connection's database)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, app *App, args []string, opts *QueryOptions) error {
	connection, err := app.resolveConnection(args[0])
	if err != nil {
		return err
	}

	var sqlText string
	switch {
	case len(args) > 1:
		sqlText = strings.Join(args[1:], " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		return runQueryREPL(cmd, app, connection.ID, connection.Name, opts)
	}

	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("no SQL to execute")
	}
	return executeAndRender(cmd, app, connection.ID, sqlText, opts)
}

func executeAndRender(cmd *cobra.Command, app *App, connectionID, sqlText string, opts *QueryOptions) error {
	ctx := cmd.Context()
	res, err := app.Executor.ExecuteQuery(ctx, connectionID, opts.Database, sqlText)
	if err != nil {
		return err
	}
	recordHistory(ctx, app, connectionID, opts.Database, sqlText, res)
	return renderResult(cmd.OutOrStdout(), res, opts.Format)
}

// recordHistory is best-effort; a broken history database never fails the
// query that produced the result.
func recordHistory(ctx context.Context, app *App, connectionID, database, sqlText string, res *core.QueryResult) {
	store, err := app.History()
	if err != nil {
		app.Logger.Warn("failed to open history", slog.String("error", err.Error()))
		return
	}
	err = store.Record(ctx, history.Entry{
		ConnectionID: connectionID,
		Database:     database,
		SQL:          strings.TrimSpace(sqlText),
		RowCount:     res.RowCount,
		DurationMs:   res.ExecutionTimeMs,
	})
	if err != nil {
		app.Logger.Warn("failed to record history", slog.String("error", err.Error()))
	}
}

func runQueryREPL(cmd *cobra.Command, app *App, connectionID, connectionName string, opts *QueryOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	historyFile := filepath.Join(app.Config.ConfigDir, "query_history")
	completer := newObjectCompleter(ctx, app, connectionID, opts.Database)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rowboat> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(out, "Connected to %s\n", connectionName)
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("rowboat> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if line == ".quit" || line == ".exit" {
				return nil
			}
			handleDotCommand(cmd, app, connectionID, line, opts)
			continue
		}

		// Accumulate multi-line SQL until semicolon.
		buffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buffer.WriteString(" ")
			rl.SetPrompt("    ...> ")
			continue
		}
		rl.SetPrompt("rowboat> ")

		sqlText := strings.TrimSuffix(buffer.String(), ";")
		buffer.Reset()

		if err := executeAndRender(cmd, app, connectionID, sqlText, opts); err != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Error: "+err.Error()))
		}
		_, _ = fmt.Fprintln(out)
	}
}

func handleDotCommand(cmd *cobra.Command, app *App, connectionID, line string, opts *QueryOptions) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".help":
		printQueryHelp(out)

	case ".tables":
		objects, err := app.Executor.ListSchemaObjects(ctx, connectionID, opts.Database)
		if err != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Error: "+err.Error()))
			return
		}
		for _, obj := range objects {
			_, _ = fmt.Fprintf(out, "%s.%s (%s)\n", obj.Schema, obj.Name, obj.ObjectType)
		}

	case ".databases":
		names, err := app.Executor.ListDatabases(ctx, connectionID)
		if err != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Error: "+err.Error()))
			return
		}
		for _, name := range names {
			_, _ = fmt.Fprintln(out, name)
		}

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", parts[0])
	}
}

func printQueryHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables and views
  .databases      List databases on the server
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newObjectCompleter builds a readline completer from the server's table
// names. A listing failure degrades to dot-command completion only.
func newObjectCompleter(ctx context.Context, app *App, connectionID, database string) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	objects, err := app.Executor.ListSchemaObjects(ctx, connectionID, database)
	if err == nil {
		for _, obj := range objects {
			items = append(items, readline.PcItem(obj.Name))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".databases"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}

// isTerminal reports whether f is attached to a terminal, to distinguish
// piped input from an interactive invocation.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
