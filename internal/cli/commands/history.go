package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the local query history",
	}
	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistorySearchCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryClearCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent queries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			entries, err := session.Store.List(ctx, limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func newHistorySearchCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search past queries by substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			entries, err := session.Store.Search(ctx, args[0], limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one history entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}

			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			entry, err := session.Store.Get(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Executed: %s\n", entry.ExecutedAt.Local())
			_, _ = fmt.Fprintf(out, "Duration: %s\n", entry.Duration)
			_, _ = fmt.Fprintf(out, "Rows: %d (%d columns)\n", entry.RowsReturned, entry.ColumnCount)
			if !entry.Success {
				_, _ = fmt.Fprintf(out, "Error: %s\n", entry.ErrorMessage)
			}
			_, _ = fmt.Fprintf(out, "\n%s\n", entry.Query)
			return nil
		},
	}
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the entire query history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Store.Clear(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}
