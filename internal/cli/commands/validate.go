package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command: the full parse,
// policy, and rewrite pipeline without execution.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <sql>",
		Short: "Check a statement against the security policy",
		Long: `Run a statement through parsing, policy evaluation, and prefix
rewriting without executing it. Shows the decision and the exact SQL
that would be sent to the warehouse.`,
		Example: `  glacier validate "DELETE FROM users"
  glacier validate "SELECT * FROM analytics.events"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := OpenSession(ctx, GetConfig(ctx), GetLogger(ctx), false)
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			info, rewritten, err := session.Prepare(args[0])

			var denied *DeniedError
			if errors.As(err, &denied) {
				renderDecision(out, denied.Decision)
				return nil
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "Allowed: %s statement\n", info.Type)
			if rewritten != args[0] {
				_, _ = fmt.Fprintf(out, "Would execute:\n  %s\n", rewritten)
			} else {
				_, _ = fmt.Fprintln(out, "No rewriting needed")
			}
			for _, warning := range info.Warnings {
				_, _ = fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}
	return cmd
}
