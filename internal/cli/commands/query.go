package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/internal/counter"
	"github.com/glacierhq/glacier/internal/ui"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	Format      string
	File        string
	Interactive bool
	NoCount     bool
	Limit       int
}

// NewQueryCommand creates the query command. With a SQL argument it
// executes once; without one it starts the interactive REPL.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Execute SQL against the warehouse",
		Long: `Execute a SQL statement against the configured warehouse.

Every statement is parsed, checked against the security policy, and has
its bare table names prefixed before execution. Without an argument an
interactive prompt is started.`,
		Example: `  # One-shot query
  glacier query "SELECT * FROM users LIMIT 10"

  # Read the statement from a file
  glacier query --file report.sql

  # Browse results interactively
  glacier query -i "SELECT * FROM events"

  # Start the REPL
  glacier query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt, err := readStatement(args, opts.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if stmt == "" {
				return runREPL(cmd, opts)
			}
			return runOnce(cmd, stmt, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format (table|csv|json|markdown)")
	cmd.Flags().StringVar(&opts.File, "file", "", "Read the statement from a file")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Browse results in the interactive viewer")
	cmd.Flags().BoolVar(&opts.NoCount, "no-count", false, "Skip the background total row count")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Rows to display (0 uses display.max_rows)")
	return cmd
}

// readStatement resolves the statement source: argument, file, or piped
// stdin. An empty result means the REPL should start.
func readStatement(args []string, file string, stdin io.Reader) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading statement file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}
	if f, ok := stdin.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return "", fmt.Errorf("reading stdin: %w", err)
			}
			return strings.TrimSpace(string(data)), nil
		}
	}
	return "", nil
}

func runOnce(cmd *cobra.Command, stmt string, opts *QueryOptions) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	session, err := OpenSession(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer session.Close()

	info, rewritten, err := session.Prepare(stmt)
	var denied *DeniedError
	if errors.As(err, &denied) {
		renderDecision(cmd.ErrOrStderr(), denied.Decision)
		return err
	}
	if err != nil {
		return err
	}

	result, affected, err := session.Run(ctx, stmt, info, rewritten)
	if err != nil {
		return err
	}

	if result == nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "OK (%d rows affected)\n", affected)
		return nil
	}

	maxRows := cfg.Display.MaxRows
	if opts.Limit > 0 {
		maxRows = opts.Limit
	}

	// Kick off the background total count while rendering the page.
	// The statement was already prepared above; reuse the rewritten
	// text rather than evaluating the policy a second time.
	var total int64 = -1
	if !opts.NoCount && maxRows > 0 && result.RowCount() >= maxRows && info.Type.IsRead() {
		job := counter.Start(ctx, session.Adapter, rewritten, logger)
		defer func() {
			if n, err := job.Wait(); err == nil {
				total = n
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(total rows: %d)\n", total)
			}
		}()
	}

	if opts.Interactive {
		return ui.Run(result, cfg.Display.NullString, total)
	}
	return renderResult(cmd.OutOrStdout(), result, opts.Format, cfg.Display.NullString, maxRows)
}
