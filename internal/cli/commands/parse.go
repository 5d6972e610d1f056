package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glacierhq/glacier/pkg/parser"
)

// NewParseCommand creates the parse command, which analyzes a statement
// without touching the warehouse.
func NewParseCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <sql>",
		Short: "Analyze a SQL statement without executing it",
		Long: `Parse a SQL statement and show its classification, table
references, and CTE names. Nothing is sent to the warehouse.`,
		Example: `  glacier parse "SELECT * FROM users u JOIN analytics.events e ON u.id = e.user_id"
  glacier parse --json "WITH recent AS (SELECT 1) SELECT * FROM recent"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := parser.Parse(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(parseReport(info))
			}

			_, _ = fmt.Fprintf(out, "Statement type: %s\n", info.Type)
			if names := info.CTEs.Names(); len(names) > 0 {
				_, _ = fmt.Fprintf(out, "CTEs: %v\n", names)
			}
			renderReferences(out, info)
			if prefix := GetConfig(cmd.Context()).Rewrite.TablePrefix; prefix != "" {
				if rewritten := parser.Rewrite(args[0], info, prefix); rewritten != args[0] {
					_, _ = fmt.Fprintf(out, "Rewritten: %s\n", rewritten)
				}
			}
			for _, warning := range info.Warnings {
				_, _ = fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type referenceReport struct {
	Database   string `json:"database,omitempty"`
	Schema     string `json:"schema,omitempty"`
	Name       string `json:"name,omitempty"`
	Alias      string `json:"alias,omitempty"`
	Clause     string `json:"clause"`
	CTE        bool   `json:"cte,omitempty"`
	Derived    bool   `json:"derived,omitempty"`
	Rewritable bool   `json:"rewritable"`
}

func parseReport(info *parser.QueryInfo) map[string]any {
	refs := make([]referenceReport, len(info.References))
	for i, ref := range info.References {
		refs[i] = referenceReport{
			Database:   ref.Database,
			Schema:     ref.Schema,
			Name:       ref.Name,
			Alias:      ref.Alias,
			Clause:     ref.Clause.String(),
			CTE:        ref.IsCTE,
			Derived:    ref.Derived,
			Rewritable: ref.Rewritable(),
		}
	}
	report := map[string]any{
		"statement_type": string(info.Type),
		"references":     refs,
	}
	if names := info.CTEs.Names(); len(names) > 0 {
		report["ctes"] = names
	}
	if len(info.Warnings) > 0 {
		report["warnings"] = info.Warnings
	}
	return report
}
