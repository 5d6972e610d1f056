// Package ui renders query results in an interactive, scrollable
// terminal table.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glacierhq/glacier/internal/export"
	"github.com/glacierhq/glacier/internal/warehouse"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	footerStyle = lipgloss.NewStyle().
			Faint(true)

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// ViewerModel is the Bubble Tea model for the result viewer.
type ViewerModel struct {
	table      table.Model
	title      string
	totalRows  int64
	nullString string
	width      int
	height     int
}

// NewViewer builds the viewer for a materialized result. totalRows is
// the background-counted total, or -1 when unknown.
func NewViewer(result *warehouse.Result, nullString string, totalRows int64) ViewerModel {
	cols := make([]table.Column, len(result.Columns))
	widths := columnWidths(result, nullString)
	for i, name := range result.Columns {
		cols[i] = table.Column{Title: name, Width: widths[i]}
	}

	rows := make([]table.Row, len(result.Rows))
	for i, row := range result.Rows {
		cells := make(table.Row, len(row))
		for j, v := range row {
			cells[j] = export.CellString(v, nullString)
		}
		rows[i] = cells
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderBottom(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return ViewerModel{
		table:      t,
		title:      fmt.Sprintf("%d rows (%s)", result.RowCount(), result.Duration.Round(1e6)),
		totalRows:  totalRows,
		nullString: nullString,
	}
}

// Init implements tea.Model.
func (m ViewerModel) Init() tea.Cmd {
	return nil
}

// Update handles resize and key events.
func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the title, the table, and the key help footer.
func (m ViewerModel) View() string {
	title := m.title
	if m.totalRows >= 0 {
		title = fmt.Sprintf("%s of %d total", m.title, m.totalRows)
	}

	return titleStyle.Render(title) + "\n" +
		tableStyle.Render(m.table.View()) + "\n" +
		footerStyle.Render("↑/↓ scroll · q quit")
}

// Run displays the viewer and blocks until the user quits.
func Run(result *warehouse.Result, nullString string, totalRows int64) error {
	model := NewViewer(result, nullString, totalRows)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// columnWidths sizes each column to its widest cell, capped so one
// wide column cannot crowd out the rest.
func columnWidths(result *warehouse.Result, nullString string) []int {
	const maxWidth = 40

	widths := make([]int, len(result.Columns))
	for i, name := range result.Columns {
		widths[i] = len(name)
	}
	for _, row := range result.Rows {
		for i, v := range row {
			if i >= len(widths) {
				break
			}
			if n := len(export.CellString(v, nullString)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		if widths[i] > maxWidth {
			widths[i] = maxWidth
		}
	}
	return widths
}
