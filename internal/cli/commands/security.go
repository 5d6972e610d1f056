package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/internal/audit"
)

// NewSecurityCommand creates the security command group.
func NewSecurityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Inspect the security policy and audit log",
	}
	cmd.AddCommand(newSecurityStatusCommand())
	cmd.AddCommand(newSecurityAuditCommand())
	return cmd
}

func newSecurityStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective security policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderPolicy(cmd.OutOrStdout(), GetConfig(cmd.Context()).Security)
			return nil
		},
	}
}

func newSecurityAuditCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())

			events, err := audit.ReadLast(cfg.AuditPath, limit)
			if errors.Is(err, os.ErrNotExist) || (err == nil && len(events) == 0) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no audit events)")
				return nil
			}
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Time", "Type", "Allowed", "Reason", "Query"})
			for _, ev := range events {
				t.AppendRow(table.Row{
					ev.Time.Local().Format(time.DateTime),
					ev.Type,
					ev.Allowed,
					ev.Reason,
					truncate(ev.Query, 50),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of events to show")
	return cmd
}
