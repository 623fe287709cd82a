package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderTable renders a left-aligned table with a separated header
// row. Column widths follow the widest cell.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(headers, widths, headerStyle))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(renderRow(row, widths, cellStyle))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRow(cells []string, widths []int, base lipgloss.Style) string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		style := base
		if i < len(widths) {
			style = style.Width(widths[i] + 2)
		}
		out[i] = style.Render(cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}
