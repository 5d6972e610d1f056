package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConnectCommand creates the connect command, which verifies the
// configured warehouse connection.
func NewConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Test the warehouse connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)

			session, err := OpenSession(ctx, cfg, GetLogger(ctx), true)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Adapter.Ping(ctx); err != nil {
				return fmt.Errorf("connection check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Connected (%s)\n", cfg.Connection.Type)
			if info, err := session.Adapter.Info(ctx); err == nil {
				_, _ = fmt.Fprintf(out, "  server:   %s\n", info)
			}
			if cfg.Connection.Host != "" {
				_, _ = fmt.Fprintf(out, "  host:     %s\n", cfg.Connection.Host)
			}
			if cfg.Connection.Database != "" {
				_, _ = fmt.Fprintf(out, "  database: %s\n", cfg.Connection.Database)
			}
			if cfg.Connection.Schema != "" {
				_, _ = fmt.Fprintf(out, "  schema:   %s\n", cfg.Connection.Schema)
			}
			return nil
		},
	}
}
