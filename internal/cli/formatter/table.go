package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const colGap = 2

// Table is a column-aligned text table. Widths are measured on visible
// text, so cells may carry ANSI styling.
type Table struct {
	Headers []string
	Rows    [][]string
	// RightAlign marks columns (by index) whose cells are right-aligned.
	RightAlign map[int]bool
}

// RenderTable renders headers and rows left-aligned.
func RenderTable(headers []string, rows [][]string) string {
	return Table{Headers: headers, Rows: rows}.Render()
}

func (t Table) Render() string {
	cols := len(t.Headers)
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	header := make([]string, cols)
	for i, h := range t.Headers {
		header[i] = StyleHeader.Render(h)
	}
	t.writeRow(&b, header, widths)

	rule := make([]string, cols)
	for i, w := range widths {
		rule[i] = StyleDim.Render(strings.Repeat("─", w))
	}
	t.writeRow(&b, rule, widths)

	for _, row := range t.Rows {
		t.writeRow(&b, row, widths)
	}
	return b.String()
}

func (t Table) writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", max(0, w-lipgloss.Width(cell)))
		last := i == len(widths)-1
		switch {
		case t.RightAlign[i]:
			b.WriteString(pad + cell)
		case last:
			b.WriteString(cell)
		default:
			b.WriteString(cell + pad)
		}
		if !last {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")
}
