package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders left-aligned columns separated by two spaces, without
// borders. Widths are measured with lipgloss so styled cells line up.
type Table struct {
	rows   [][]string
	widths []int
}

// NewTable creates a table with cols columns.
func NewTable(cols int) *Table {
	return &Table{widths: make([]int, cols)}
}

// AddRow appends a row. Missing cells are blank; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.widths))
	copy(row, cells)
	for i, c := range row {
		if w := lipgloss.Width(c); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// String renders the table. The last column is not padded.
func (t *Table) String() string {
	var sb strings.Builder
	for _, row := range t.rows {
		last := len(row) - 1
		for i, cell := range row {
			sb.WriteString(cell)
			if i < last {
				sb.WriteString(strings.Repeat(" ", t.widths[i]-lipgloss.Width(cell)+2))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
