package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// column is one fixed-width table column.
type column struct {
	label string
	width int
}

// cursor tracks the selected row and scroll offset of a table.
type cursor struct {
	pos            int
	offset         int
	viewportHeight int
}

func (c *cursor) height() int {
	if c.viewportHeight <= 0 {
		return 10
	}
	return c.viewportHeight
}

// clamp keeps the cursor inside [0, n).
func (c *cursor) clamp(n int) {
	if n == 0 {
		c.pos = 0
		c.offset = 0
		return
	}
	if c.pos >= n {
		c.pos = n - 1
	}
	if c.pos < 0 {
		c.pos = 0
	}
	if c.offset > c.pos {
		c.offset = c.pos
	}
	if c.pos >= c.offset+c.height() {
		c.offset = c.pos - c.height() + 1
	}
}

func (c *cursor) down(n int) {
	if c.pos < n-1 {
		c.pos++
		if c.pos >= c.offset+c.height() {
			c.offset++
		}
	}
}

func (c *cursor) up() {
	if c.pos > 0 {
		c.pos--
		if c.pos < c.offset {
			c.offset--
		}
	}
}

func (c *cursor) top() {
	c.pos = 0
	c.offset = 0
}

func (c *cursor) bottom(n int) {
	if n == 0 {
		return
	}
	c.pos = n - 1
	if c.pos >= c.height() {
		c.offset = c.pos - c.height() + 1
	}
}

func (c *cursor) halfPageDown(n, pageSize int) {
	c.pos += pageSize / 2
	c.clamp(n)
}

func (c *cursor) halfPageUp(n, pageSize int) {
	c.pos -= pageSize / 2
	c.clamp(n)
}

// columnWidths expands the last column so the table fills width.
func columnWidths(cols []column, width int) []int {
	widths := make([]int, len(cols))
	total := 0
	for i, col := range cols {
		widths[i] = max(col.width+2, lipgloss.Width(col.label)+4)
		total += widths[i]
	}
	if extra := width - total - 2; extra > 0 && len(widths) > 0 {
		widths[len(widths)-1] += extra
	}
	return widths
}

func renderTableHeader(cols []column, widths []int) string {
	labels := make([]string, len(cols))
	for i, col := range cols {
		labels[i] = strings.ToUpper(col.label)
	}
	return renderTableRow(labels, widths, TableHeaderStyle.Bold(true))
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

func renderTableDivider(widths []int) string {
	total := 0
	for _, w := range widths {
		total += w
	}
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(strings.Repeat("─", total))
}

// layoutTable stacks the table and pins the status line to the bottom of height.
func layoutTable(header, divider string, rows []string, status string, height int) string {
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		divider,
		strings.Join(rows, "\n"),
	)
	spacerHeight := max(0, height-lipgloss.Height(content)-lipgloss.Height(status))
	spacer := lipgloss.NewStyle().Height(spacerHeight).Render("")

	return lipgloss.JoinVertical(lipgloss.Left, content, spacer, status)
}
