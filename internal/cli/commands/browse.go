package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/rowboat-dev/rowboat/internal/session"
	"github.com/rowboat-dev/rowboat/pkg/dialect"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	Database string
	Schema   string
	PageSize int
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(app *App) *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse <connection> <table>",
		Short: "Browse a table interactively",
		Long: `Open a table in an interactive pager with filtering, sorting,
selection and in-place editing.

Rows are fetched one page at a time; typing changes never block the prompt.
Tables without a primary key open read-only.`,
		Example: `  # Browse public.users on the "local" connection
  rowboat browse local users

  # Browse a table in another schema and database
  rowboat browse local orders --schema sales --database analytics`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, app, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "Database to browse (default: the connection's database)")
	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "Schema containing the table (default: dialect default)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Rows per page (default from config)")

	return cmd
}

func runBrowse(cmd *cobra.Command, app *App, connRef, tableName string, opts *BrowseOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	connection, err := app.resolveConnection(connRef)
	if err != nil {
		return err
	}
	d, ok := dialect.Get(connection.Type)
	if !ok {
		return fmt.Errorf("no dialect for connection type %q", connection.Type)
	}
	schema := opts.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = app.Config.PageSize
	}

	sess := session.New(app.Executor, d, session.Config{
		ConnectionID:   connection.ID,
		Database:       opts.Database,
		Schema:         schema,
		Table:          tableName,
		PageSize:       pageSize,
		DebounceWindow: app.Config.DebounceWindow(),
		Logger:         app.Logger,
	})
	if err := sess.Open(ctx); err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer sess.Close()

	historyFile := filepath.Join(app.Config.ConfigDir, "browse_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "browse> ",
		HistoryFile:     historyFile,
		AutoComplete:    browseCompleter(sess.Snapshot()),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(out, "Browsing %s.%s on %s\n", schema, tableName, connection.Name)
	_, _ = fmt.Fprintln(out, "Type /help for commands, /quit to exit")
	_, _ = fmt.Fprintln(out)
	renderPage(out, sess.Snapshot())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			// A bare enter redraws; this is how a debounced filter's
			// result gets picked up.
			renderPage(out, sess.Snapshot())
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := runBrowseCommand(cmd, sess, line); err != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Error: "+err.Error()))
			continue
		}
		renderPage(out, sess.Snapshot())
	}
}

func runBrowseCommand(cmd *cobra.Command, sess *session.Session, line string) error {
	ctx := cmd.Context()
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help":
		printBrowseHelp(cmd.OutOrStdout())
		return nil

	case "/filter":
		switch len(args) {
		case 0:
			return fmt.Errorf("usage: /filter <column> [text]")
		case 1:
			sess.SetFilter(args[0], "")
		default:
			sess.SetFilter(args[0], strings.Join(args[1:], " "))
		}
		return nil

	case "/sort":
		if len(args) != 1 {
			return fmt.Errorf("usage: /sort <column>")
		}
		return sess.ToggleSort(ctx, args[0])

	case "/more":
		return sess.LoadMore(ctx)

	case "/refresh":
		return sess.Refresh(ctx)

	case "/select":
		if len(args) != 1 {
			return fmt.Errorf("usage: /select <row-number>")
		}
		identity, err := browseRowIdentity(sess, args[0])
		if err != nil {
			return err
		}
		return sess.ToggleSelect(identity)

	case "/clear":
		sess.ClearSelection()
		return nil

	case "/set":
		if len(args) < 3 {
			return fmt.Errorf("usage: /set <row-number> <column> <value>")
		}
		identity, err := browseRowIdentity(sess, args[0])
		if err != nil {
			return err
		}
		return sess.UpdateCell(ctx, identity, args[1], strings.Join(args[2:], " "))

	case "/insert":
		if len(args) == 0 {
			return fmt.Errorf("usage: /insert <column>=<value> ...")
		}
		values := make(map[string]string, len(args))
		for _, pair := range args {
			col, val, ok := strings.Cut(pair, "=")
			if !ok || col == "" {
				return fmt.Errorf("malformed pair %q, expected column=value", pair)
			}
			values[col] = val
		}
		return sess.Insert(ctx, values)

	case "/delete":
		return sess.DeleteSelected(ctx)

	default:
		return fmt.Errorf("unknown command %s (type /help for commands)", command)
	}
}

// browseRowIdentity maps a 1-based on-screen row number onto the row's
// identity string.
func browseRowIdentity(sess *session.Session, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("row number must be an integer, got %q", arg)
	}
	st := sess.Snapshot()
	if n < 1 || n > len(st.Rows) {
		return "", fmt.Errorf("row %d is not on screen (1-%d)", n, len(st.Rows))
	}
	identity := rowIdentity(st, n-1)
	if identity == "" {
		return "", fmt.Errorf("table has no primary key")
	}
	return identity, nil
}

func printBrowseHelp(w io.Writer) {
	help := `
Commands:
  /filter <column> [text]   Filter a column ("null"/"not null" match nullness);
                            no text clears the column's filter
  /sort <column>            Cycle column sort: ascending, descending, off
  /more                     Load the next page
  /refresh                  Refetch the current view
  /select <n>               Toggle selection of on-screen row n
  /clear                    Clear the selection
  /set <n> <column> <value> Update one cell of row n
  /insert col=value ...     Insert a row
  /delete                   Delete the selected rows
  /help                     Show this help message
  /quit                     Exit

Tips:
  - Filters apply after a short pause; press enter to redraw
  - Values are typed: "null", "true", "42" coerce before comparison
`
	_, _ = fmt.Fprintln(w, help)
}

func browseCompleter(st session.State) *readline.PrefixCompleter {
	columns := make([]readline.PrefixCompleterInterface, 0, len(st.Columns))
	for _, col := range st.Columns {
		columns = append(columns, readline.PcItem(col.Name))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("/filter", columns...),
		readline.PcItem("/sort", columns...),
		readline.PcItem("/more"),
		readline.PcItem("/refresh"),
		readline.PcItem("/select"),
		readline.PcItem("/clear"),
		readline.PcItem("/set"),
		readline.PcItem("/insert"),
		readline.PcItem("/delete"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
}
