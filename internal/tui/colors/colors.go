// Package colors holds the adaptive palette used by the terminal UI.
package colors

import "github.com/charmbracelet/lipgloss"

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Roles. Dark values come from Catppuccin Mocha, light values from Latte.
var (
	Accent    = adaptive("#8839ef", "#cba6f7")
	Highlight = adaptive("#ea76cb", "#f5c2e7")
	Info      = adaptive("#04a5e5", "#89dceb")
	Border    = adaptive("#bcc0cc", "#45475a")
	Muted     = adaptive("#6c6f85", "#a6adc8")
	Text      = adaptive("#4c4f69", "#cdd6f4")
)

// Queue states, one per item state shown in the queue and More tabs.
var (
	Downloading = adaptive("#40a02b", "#a6e3a1")
	Paused      = adaptive("#fe640b", "#fab387")
	Failed      = adaptive("#d20f39", "#f38ba8")
	Finished    = adaptive("#1e66f5", "#89b4fa")
)
