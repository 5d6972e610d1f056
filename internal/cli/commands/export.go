package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/internal/export"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <sql>",
		Short: "Execute a query and write the results to a file",
		Example: `  glacier export "SELECT * FROM orders" --format csv
  glacier export "SELECT * FROM orders" -o orders.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)

			if format == "" {
				format = cfg.Export.Format
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			session, err := OpenSession(ctx, cfg, GetLogger(ctx), true)
			if err != nil {
				return err
			}
			defer session.Close()

			result, _, err := session.Execute(ctx, args[0])
			var denied *DeniedError
			if errors.As(err, &denied) {
				renderDecision(cmd.ErrOrStderr(), denied.Decision)
				return err
			}
			if err != nil {
				return err
			}
			if result == nil {
				return fmt.Errorf("statement returned no rows to export")
			}

			path := output
			if path == "" {
				path = filepath.Join(cfg.Export.Dir, export.DefaultFileName(f, time.Now()))
			}
			if err := export.ToFile(path, result, f); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", result.RowCount(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format (csv|json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}
