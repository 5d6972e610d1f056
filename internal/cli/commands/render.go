package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/glacierhq/glacier/internal/export"
	"github.com/glacierhq/glacier/internal/warehouse"
)

// renderResult writes the result in the requested format. The table
// format truncates at maxRows; csv and json always write everything.
func renderResult(w io.Writer, result *warehouse.Result, format, nullString string, maxRows int) error {
	switch strings.ToLower(format) {
	case "csv":
		return export.WriteCSV(w, result)
	case "json":
		return export.WriteJSON(w, result)
	case "md", "markdown":
		return renderTable(w, result, nullString, maxRows, true)
	default:
		return renderTable(w, result, nullString, maxRows, false)
	}
}

func renderTable(w io.Writer, result *warehouse.Result, nullString string, maxRows int, markdown bool) error {
	if result.RowCount() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	rows := result.Rows
	truncated := false
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
		truncated = true
	}
	for _, row := range rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			cells[i] = export.CellString(v, nullString)
		}
		t.AppendRow(cells)
	}

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}

	if truncated {
		_, _ = fmt.Fprintf(w, "(showing %d of %d rows)\n", maxRows, result.RowCount())
	} else {
		_, _ = fmt.Fprintf(w, "(%d rows in %s)\n", result.RowCount(), result.Duration.Round(1e6))
	}
	return nil
}
