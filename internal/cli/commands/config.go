package commands

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/warehouse"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the merged configuration",
	}
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigValidateCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			out := cmd.OutOrStdout()

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Setting", "Value"})
			t.AppendRow(table.Row{"connection.type", cfg.Connection.Type})
			t.AppendRow(table.Row{"connection.host", cfg.Connection.Host})
			if cfg.Connection.Port != 0 {
				t.AppendRow(table.Row{"connection.port", strconv.Itoa(cfg.Connection.Port)})
			}
			t.AppendRow(table.Row{"connection.database", cfg.Connection.Database})
			t.AppendRow(table.Row{"connection.schema", cfg.Connection.Schema})
			t.AppendRow(table.Row{"connection.user", cfg.Connection.User})
			t.AppendRow(table.Row{"connection.password", maskSecret(cfg.Connection.Password)})
			t.AppendRow(table.Row{"rewrite.table_prefix", cfg.Rewrite.TablePrefix})
			t.AppendRow(table.Row{"history.path", cfg.History.Path})
			t.AppendRow(table.Row{"history.max_entries", strconv.Itoa(cfg.History.MaxEntries)})
			t.AppendRow(table.Row{"export.dir", cfg.Export.Dir})
			t.AppendRow(table.Row{"export.format", cfg.Export.Format})
			t.AppendRow(table.Row{"display.max_rows", strconv.Itoa(cfg.Display.MaxRows)})
			t.AppendRow(table.Row{"display.null_string", cfg.Display.NullString})
			t.Render()

			_, _ = fmt.Fprintln(out)
			renderPolicy(out, cfg.Security)
			_, _ = fmt.Fprintf(out, "\nConfig directory: %s\n", config.Dir())
			return nil
		},
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			out := cmd.OutOrStdout()

			var problems []string
			known := warehouse.List()
			switch {
			case cfg.Connection.Type == "":
				problems = append(problems, "connection.type is not set")
			case !slices.Contains(known, cfg.Connection.Type):
				problems = append(problems,
					fmt.Sprintf("unknown connection type %q (known: %v)", cfg.Connection.Type, known))
			case cfg.Connection.Type != "sqlite":
				if cfg.Connection.Host == "" && cfg.Connection.Account == "" {
					problems = append(problems, "connection.host (or account) is required for remote warehouses")
				}
				if cfg.Connection.Database == "" {
					problems = append(problems, "connection.database is not set")
				}
			}
			if cfg.Security.MaxQueryLength < 0 {
				problems = append(problems, "security.max_query_length must not be negative")
			}
			if cfg.Display.MaxRows < 0 {
				problems = append(problems, "display.max_rows must not be negative")
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintf(out, "  - %s\n", p)
				}
				return fmt.Errorf("configuration has %d problem(s)", len(problems))
			}
			_, _ = fmt.Fprintln(out, "Configuration OK")
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
