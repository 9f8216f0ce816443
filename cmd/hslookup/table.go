package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table renders aligned columns for terminal output. Styles come from a
// renderer bound to the destination, so piped output stays plain text.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// write renders the table to w. A table without headers renders its first
// column in bold, for label/value listings.
func (t *table) write(w io.Writer) error {
	re := lipgloss.NewRenderer(w)
	headerStyle := re.NewStyle().Bold(true).PaddingRight(2)
	labelStyle := re.NewStyle().Bold(true).PaddingRight(2)
	cellStyle := re.NewStyle().PaddingRight(2)
	ruleStyle := re.NewStyle().Faint(true)

	cols := len(t.headers)
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	// Width includes the padding.
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	line := func(cells []string, style func(col int) lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			s := style(i)
			if i == len(cells)-1 {
				s = s.UnsetPaddingRight()
				parts[i] = s.Render(cell)
				continue
			}
			parts[i] = s.Width(widths[i]).Render(cell)
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
		sb.WriteString("\n")
	}

	if len(t.headers) > 0 {
		line(t.headers, func(int) lipgloss.Style { return headerStyle })
		total := 0
		for _, w := range widths {
			total += w
		}
		sb.WriteString(ruleStyle.Render(strings.Repeat("-", total-2)))
		sb.WriteString("\n")
	}
	for _, row := range t.rows {
		line(row, func(col int) lipgloss.Style {
			if col == 0 && len(t.headers) == 0 {
				return labelStyle
			}
			return cellStyle
		})
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
