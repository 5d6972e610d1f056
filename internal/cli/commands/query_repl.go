package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/history"
	"github.com/glacierhq/glacier/internal/warehouse"
)

func runREPL(cmd *cobra.Command, opts *QueryOptions) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	session, err := OpenSession(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer session.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "glacier> ",
		HistoryFile:     filepath.Join(config.Dir(), "repl_history"),
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("initializing prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "glacier (connected: %s)\n", cfg.Connection.Type)
	if cfg.Rewrite.TablePrefix != "" {
		_, _ = fmt.Fprintf(out, "table prefix: %s\n", cfg.Rewrite.TablePrefix)
	}
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("glacier> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(cmd, session, line, opts); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon.
		buffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buffer.WriteString(" ")
			rl.SetPrompt("    ...> ")
			continue
		}
		rl.SetPrompt("glacier> ")

		stmt := strings.TrimSuffix(buffer.String(), ";")
		buffer.Reset()

		executeInREPL(cmd, session, stmt, opts)
	}

	return nil
}

func executeInREPL(cmd *cobra.Command, session *Session, stmt string, opts *QueryOptions) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	result, affected, err := session.Execute(ctx, stmt)
	var denied *DeniedError
	if errors.As(err, &denied) {
		renderDecision(cmd.ErrOrStderr(), denied.Decision)
		return
	}
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return
	}

	if result == nil {
		_, _ = fmt.Fprintf(out, "OK (%d rows affected)\n", affected)
		return
	}
	if err := renderResult(out, result, opts.Format, session.Cfg.Display.NullString, session.Cfg.Display.MaxRows); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(out)
}

// handleDotCommand runs a REPL command; it reports whether the REPL
// should exit.
func handleDotCommand(cmd *cobra.Command, session *Session, line string, opts *QueryOptions) bool {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".history":
		entries, err := session.Store.List(ctx, 20)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		renderHistory(out, entries)

	case ".favorites":
		favorites, err := session.Store.ListFavorites(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		renderFavorites(out, favorites)

	case ".save":
		if len(parts) < 3 {
			_, _ = fmt.Fprintln(errOut, "Usage: .save <name> <sql>")
			break
		}
		stmt := strings.TrimSuffix(strings.Join(parts[2:], " "), ";")
		err := session.Store.SaveFavorite(ctx, history.Favorite{Name: parts[1], Query: stmt})
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		_, _ = fmt.Fprintf(out, "Saved %q\n", parts[1])

	case ".run":
		if len(parts) != 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .run <favorite>")
			break
		}
		favorite, err := session.Store.GetFavorite(ctx, parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		_ = session.Store.TouchFavorite(ctx, parts[1])
		executeInREPL(cmd, session, favorite.Query, opts)

	case ".tables":
		introspector, ok := session.Adapter.(warehouse.Introspector)
		if !ok {
			_, _ = fmt.Fprintln(errOut, "the current adapter cannot list tables")
			break
		}
		tables, err := introspector.ListTables(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		if len(tables) == 0 {
			_, _ = fmt.Fprintln(out, "(no tables)")
			break
		}
		for _, name := range tables {
			_, _ = fmt.Fprintf(out, "  %s\n", name)
		}

	case ".schema":
		if len(parts) != 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .schema <table>")
			break
		}
		introspector, ok := session.Adapter.(warehouse.Introspector)
		if !ok {
			_, _ = fmt.Fprintln(errOut, "the current adapter cannot describe tables")
			break
		}
		result, err := introspector.DescribeTable(ctx, parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		if result.RowCount() == 0 {
			_, _ = fmt.Fprintf(errOut, "no such table: %s\n", parts[1])
			break
		}
		_ = renderResult(out, result, "table", session.Cfg.Display.NullString, 0)

	case ".prefix":
		if session.Cfg.Rewrite.TablePrefix == "" {
			_, _ = fmt.Fprintln(out, "no table prefix configured")
		} else {
			_, _ = fmt.Fprintf(out, "table prefix: %s\n", session.Cfg.Rewrite.TablePrefix)
		}

	case ".policy":
		renderPolicy(out, session.Evaluator.Policy())

	case ".clear":
		_, _ = fmt.Fprint(out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".history"),
		readline.PcItem(".favorites"),
		readline.PcItem(".save"),
		readline.PcItem(".run"),
		readline.PcItem(".prefix"),
		readline.PcItem(".policy"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem("SELECT "),
		readline.PcItem("INSERT INTO "),
		readline.PcItem("UPDATE "),
		readline.PcItem("DELETE FROM "),
		readline.PcItem("WITH "),
	)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .tables          List tables in the current schema
  .schema <table>  Show the columns of a table
  .history         Show recent queries
  .favorites       List saved queries
  .save <name> <sql>  Save a query under a name
  .run <name>      Run a saved query
  .prefix          Show the active table prefix
  .policy          Show the active security policy
  .clear           Clear the screen
  .quit / .exit    Exit

Tips:
  - SQL statements must end with a semicolon (;)
  - Bare table names are prefixed automatically before execution
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}
