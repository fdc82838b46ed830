package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/dcmaui/uibridge/internal/format/table"
)

const (
	detailPanelMinWidth = 30  // minimum cols for the detail panel; below this no split
	detailPanelFraction = 0.5 // fraction of total width given to the detail panel
	chromeRows          = 4   // header, filter, blank line, footer
)

// detailPanelWidth returns the width in columns for the right-hand detail
// panel. Returns 0 when the terminal is too narrow to split.
func (m *Model) detailPanelWidth() int {
	if m.width <= 0 {
		return 0
	}
	w := int(float64(m.width) * detailPanelFraction)
	if w < detailPanelMinWidth {
		return 0
	}
	return w
}

func (m *Model) listColumnWidth() int {
	if w := m.detailPanelWidth(); w > 0 {
		return m.width - w - 1
	}
	return m.width
}

func (m *Model) maxVisibleItems() int {
	if m.height <= chromeRows {
		return 10
	}
	return m.height - chromeRows
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	left := m.listColumn()
	if w := m.detailPanelWidth(); w > 0 {
		right := m.detailColumn(w)
		b.WriteString(joinColumns(left, right, m.listColumnWidth()))
	} else {
		b.WriteString(strings.Join(left, "\n"))
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) header() string {
	text := fmt.Sprintf("views: %d", len(m.list.Full))
	if len(m.list.Items) != len(m.list.Full) {
		text = fmt.Sprintf("views: %d/%d", len(m.list.Items), len(m.list.Full))
	}
	if styles.Header != nil {
		return styles.Header.Render(text)
	}
	return text
}

func (m *Model) footer() string {
	text := "up/down move · esc quit"
	if styles.Footer != nil {
		return styles.Footer.Render(text)
	}
	return text
}

func (m *Model) listColumn() []string {
	maxItems := m.maxVisibleItems()
	m.list.EnsureCursorVisible(maxItems)
	if len(m.list.Items) == 0 {
		msg := "(no views)"
		if strings.TrimSpace(m.filter.Value()) != "" {
			msg = fmt.Sprintf("No matches for %q", m.filter.Value())
		}
		if styles.Info != nil {
			msg = styles.Info.Render(msg)
		}
		return []string{msg}
	}

	start := m.list.ViewportOffset
	end := start + maxItems
	if end > len(m.list.Items) {
		end = len(m.list.Items)
	}
	width := m.listColumnWidth()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := m.list.Items[i]
		selected := i == m.list.Cursor
		indicator := "  "
		if selected {
			indicator = "> "
		}
		text := item.Label
		if width > 2 {
			text = ansi.Truncate(text, width-2, "…")
		}
		line := indicator + text
		switch {
		case selected && styles.SelectedItem != nil:
			line = styles.SelectedItem.Render(line)
		case !selected && styles.Item != nil:
			line = styles.Item.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// detailColumn renders the selected widget's data followed by the tree dump.
func (m *Model) detailColumn(width int) []string {
	lines := make([]string, 0, 16)
	if item, ok := m.list.Selected(); ok {
		if w, found := m.factory.Lookup(item.ID); found {
			rows := [][]string{
				{"id", w.ID},
				{"type", string(w.Tag)},
			}
			if w.Text != "" {
				rows = append(rows, []string{"text", w.Text})
			}
			for _, key := range w.State.Keys() {
				rows = append(rows, []string{key, fmt.Sprint(w.State[key].Interface())})
			}
			if len(w.Items) > 0 {
				rows = append(rows, []string{"items", itemSummary(w.Items)})
			}
			for _, row := range table.Format(rows, []table.Alignment{table.AlignLeft, table.AlignLeft}) {
				lines = append(lines, ansi.Truncate(row, width, "…"))
			}
			lines = append(lines, "")
		}
	}
	for _, line := range strings.Split(strings.TrimRight(m.hierarchy, "\n"), "\n") {
		lines = append(lines, ansi.Truncate(line, width, "…"))
	}
	return lines
}

func itemSummary(items map[int]string) string {
	indices := make([]int, 0, len(items))
	for i := range items {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		parts = append(parts, fmt.Sprintf("%d:%s", i, items[i]))
	}
	return strings.Join(parts, " ")
}

// joinColumns zips two line columns into a side-by-side layout, padding the
// left column to a fixed width.
func joinColumns(left, right []string, leftWidth int) string {
	rows := len(left)
	if len(right) > rows {
		rows = len(right)
	}
	lines := make([]string, 0, rows)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("│")
	for i := 0; i < rows; i++ {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		pad := leftWidth - ansi.StringWidth(l)
		if pad < 0 {
			pad = 0
		}
		lines = append(lines, l+strings.Repeat(" ", pad)+sep+r)
	}
	return strings.Join(lines, "\n")
}
