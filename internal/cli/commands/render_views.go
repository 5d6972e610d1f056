package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/glacierhq/glacier/internal/history"
	"github.com/glacierhq/glacier/internal/security"
	"github.com/glacierhq/glacier/pkg/parser"
)

// renderDecision prints a denied security decision.
func renderDecision(w io.Writer, decision security.Decision) {
	_, _ = fmt.Fprintf(w, "Denied: %s\n", decision.Reason)
	for _, item := range decision.OffendingItems {
		_, _ = fmt.Fprintf(w, "  - %s\n", item)
	}
}

// renderPolicy prints the effective security policy.
func renderPolicy(w io.Writer, policy security.Policy) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRow(table.Row{"allow_all_query_types", policy.AllowAllQueryTypes})
	t.AppendRow(table.Row{"max_query_length", policy.MaxQueryLength})
	t.AppendRow(table.Row{"allowed_schemas", listOrAny(policy.AllowedSchemas)})
	t.AppendRow(table.Row{"blocked_schemas", listOrNone(policy.BlockedSchemas)})
	t.AppendRow(table.Row{"blocked_function_patterns", listOrNone(policy.BlockedFunctionPatterns)})
	t.AppendRow(table.Row{"audit_logging", policy.AuditLogging})
	t.Render()
}

func listOrAny(items []string) string {
	if len(items) == 0 {
		return "(any)"
	}
	return strings.Join(items, ", ")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// renderHistory prints history entries, newest first.
func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(no history)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Executed", "Duration", "Rows", "Status", "Query"})
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "error"
		}
		t.AppendRow(table.Row{
			e.ID,
			e.ExecutedAt.Local().Format(time.DateTime),
			e.Duration.Round(time.Millisecond),
			e.RowsReturned,
			status,
			truncate(e.Query, 60),
		})
	}
	t.Render()
}

// renderFavorites prints saved queries.
func renderFavorites(w io.Writer, favorites []history.Favorite) {
	if len(favorites) == 0 {
		_, _ = fmt.Fprintln(w, "(no favorites)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Uses", "Tags", "Description", "Query"})
	for _, f := range favorites {
		t.AppendRow(table.Row{
			f.Name,
			f.UseCount,
			strings.Join(f.Tags, ", "),
			f.Description,
			truncate(f.Query, 50),
		})
	}
	t.Render()
}

// renderReferences prints the table references of a parsed statement.
func renderReferences(w io.Writer, info *parser.QueryInfo) {
	if len(info.References) == 0 {
		_, _ = fmt.Fprintln(w, "(no table references)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Clause", "Reference", "Alias", "Kind", "Rewritable"})
	for _, ref := range info.References {
		kind := "table"
		switch {
		case ref.Derived:
			kind = "subquery"
		case ref.IsCTE:
			kind = "cte"
		}
		name := ref.Qualified()
		if ref.Derived {
			name = "(select ...)"
		}
		t.AppendRow(table.Row{
			ref.Clause.String(),
			name,
			ref.Alias,
			kind,
			ref.Rewritable(),
		})
	}
	t.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
