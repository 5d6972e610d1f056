package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacierhq/glacier/internal/warehouse"
)

func sampleResult() *warehouse.Result {
	return &warehouse.Result{
		Columns:  []string{"id", "name"},
		Rows:     [][]any{{int64(1), "ada"}, {int64(2), nil}},
		Duration: 5 * time.Millisecond,
	}
}

func TestNewViewerRendersRows(t *testing.T) {
	m := NewViewer(sampleResult(), "NULL", -1)
	view := m.View()

	assert.Contains(t, view, "id")
	assert.Contains(t, view, "ada")
	assert.Contains(t, view, "NULL")
	assert.Contains(t, view, "2 rows")
}

func TestViewerShowsTotalWhenKnown(t *testing.T) {
	m := NewViewer(sampleResult(), "NULL", 1234)
	assert.Contains(t, m.View(), "of 1234 total")
}

func TestViewerQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m := NewViewer(sampleResult(), "NULL", -1)
		_, cmd := m.Update(keyMsg(key))
		require.NotNil(t, cmd, "key %q should quit", key)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func TestColumnWidthsAreCapped(t *testing.T) {
	result := &warehouse.Result{
		Columns: []string{"c"},
		Rows:    [][]any{{string(make([]byte, 200))}},
	}
	widths := columnWidths(result, "NULL")
	assert.Equal(t, []int{40}, widths)
}
