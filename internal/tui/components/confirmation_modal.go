package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/tsundoku-app/tsundoku/internal/tui/colors"
)

// ConfirmationModal renders a styled confirmation dialog box
type ConfirmationModal struct {
	Title       string
	Message     string
	Detail      string // Optional additional detail line
	Keys        help.KeyMap
	Help        help.Model
	BorderColor lipgloss.TerminalColor
	Width       int
}

// NewConfirmationModal creates a modal with default styling
func NewConfirmationModal(title, message, detail string, keys help.KeyMap, helpModel help.Model, borderColor lipgloss.TerminalColor) ConfirmationModal {
	return ConfirmationModal{
		Title:       title,
		Message:     message,
		Detail:      detail,
		Keys:        keys,
		Help:        helpModel,
		BorderColor: borderColor,
		Width:       50,
	}
}

// View renders title, message and detail without the box.
func (m ConfirmationModal) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(m.BorderColor).
		Bold(true)
	detailStyle := lipgloss.NewStyle().
		Foreground(colors.Accent).
		Bold(true)

	lines := []string{titleStyle.Render(m.Title), "", m.Message}
	if m.Detail != "" {
		lines = append(lines, "", detailStyle.Render(m.Detail))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

// Centered returns the modal centered in the given dimensions with the help
// line at the bottom of the box.
func (m ConfirmationModal) Centered(width, height int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(m.BorderColor).
		Padding(1, 4)

	innerWidth := max(m.Width-10, 10) // borders and padding

	helpText := lipgloss.NewStyle().
		Foreground(colors.Border).
		Width(innerWidth).
		Align(lipgloss.Center).
		Render(m.Help.View(m.Keys))

	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Width(innerWidth).Align(lipgloss.Center).Render(m.View()),
		"",
		helpText,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}
