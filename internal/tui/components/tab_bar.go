package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab item
type Tab struct {
	Label string
	Count int // If >= 0, displays as "Label (Count)"; if < 0, displays just "Label"
}

// RenderTabBar renders a horizontal tab bar with the given tabs.
// activeIndex is 0-based.
func RenderTabBar(tabs []Tab, activeIndex int, activeStyle, inactiveStyle lipgloss.Style) string {
	rendered := make([]string, 0, len(tabs))
	for i, t := range tabs {
		style := inactiveStyle
		if i == activeIndex {
			style = activeStyle
		}

		label := t.Label
		if t.Count >= 0 {
			label = fmt.Sprintf("%s (%d)", t.Label, t.Count)
		}
		rendered = append(rendered, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, rendered...)
}
