package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/tui/colors"
)

var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(colors.Accent).
			Bold(true)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(colors.Muted).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(colors.Highlight).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colors.Highlight).
			Padding(0, 1).
			Bold(true)

	RowTitleStyle = lipgloss.NewStyle().
			Foreground(colors.Text).
			Bold(true)

	RowDescStyle = lipgloss.NewStyle().
			Foreground(colors.Muted)

	DownloadingStyle = lipgloss.NewStyle().
				Foreground(colors.Downloading).
				Bold(true)

	PausedStyle = lipgloss.NewStyle().
			Foreground(colors.Paused).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colors.Failed)

	DoneStyle = lipgloss.NewStyle().
			Foreground(colors.Finished)

	ToggleOnStyle = lipgloss.NewStyle().
			Foreground(colors.Info).
			Bold(true)

	ToggleOffStyle = lipgloss.NewStyle().
			Foreground(colors.Border)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colors.Border)
)

// ApplyTheme picks the light or dark palette. ThemeAdaptive asks the
// terminal for its background color.
func ApplyTheme(theme int) {
	switch theme {
	case config.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case config.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}
}
