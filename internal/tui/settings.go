package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/core"
)

// moreCategory holds the toggles the service owns; they are changed through
// it rather than through the settings file.
const moreCategory = "More"

// settingRow is one line of the Settings tab. A multichoice setting gets one
// row per choice.
type settingRow struct {
	category string
	meta     config.SettingMeta
	choice   string
}

func buildSettingRows() []settingRow {
	meta := config.GetSettingsMetadata()
	var rows []settingRow
	for _, cat := range config.CategoryOrder() {
		for _, sm := range meta[cat] {
			if sm.Type == "multichoice" {
				for _, c := range sm.Choices {
					rows = append(rows, settingRow{category: cat, meta: sm, choice: c})
				}
				continue
			}
			rows = append(rows, settingRow{category: cat, meta: sm})
		}
	}
	return rows
}

func (r settingRow) editable() bool {
	switch r.meta.Type {
	case "bool", "choice", "multichoice":
		return true
	}
	return false
}

func (r settingRow) label() string {
	if r.choice != "" {
		return r.meta.Label + ": " + r.choice
	}
	return r.meta.Label
}

func (r settingRow) value(s *config.Settings, t core.Toggles) string {
	switch {
	case r.choice != "":
		if slices.Contains(s.Library.UpdateRestrictions, r.choice) {
			return "[x]"
		}
		return "[ ]"
	case r.meta.Key == "downloaded_only":
		return onOff(t.DownloadedOnly)
	case r.meta.Key == "incognito_mode":
		return onOff(t.IncognitoMode)
	}
	v, err := s.FormatValue(r.meta.Key)
	if err != nil {
		return "?"
	}
	return v
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// settingsMsg carries the settings file after a load or an edit.
type settingsMsg struct {
	settings *config.Settings
	err      error
}

func loadSettings(load func() (*config.Settings, error)) tea.Cmd {
	return func() tea.Msg {
		s, err := load()
		return settingsMsg{settings: s, err: err}
	}
}

// editSetting cycles the value of r. The file is re-read first so the edit
// lands on whatever the daemon saved last.
func (m RootModel) editSetting(r settingRow) tea.Cmd {
	if r.category == moreCategory {
		switch r.meta.Key {
		case "downloaded_only":
			v := !m.toggles.DownloadedOnly
			return setToggles(m.service, core.ToggleRequest{DownloadedOnly: &v})
		case "incognito_mode":
			v := !m.toggles.IncognitoMode
			return setToggles(m.service, core.ToggleRequest{IncognitoMode: &v})
		}
	}

	load, save := m.loadSettings, m.saveSettings
	return func() tea.Msg {
		s, err := load()
		if err != nil {
			return settingsMsg{err: err}
		}
		if r.choice != "" {
			err = s.ToggleChoice(r.meta.Key, r.choice)
		} else {
			err = s.Cycle(r.meta.Key)
		}
		if err == nil {
			err = save(s)
		}
		if err != nil {
			return settingsMsg{err: fmt.Errorf("%s: %w", r.meta.Label, err)}
		}
		return settingsMsg{settings: s}
	}
}

// settingsVisibleRange returns the [start, end) window of rows to draw,
// keeping selected near the middle.
func settingsVisibleRange(total, selected, window int) (int, int) {
	if window <= 0 || total <= window {
		return 0, total
	}
	start := selected - window/2
	start = max(0, min(start, total-window))
	return start, start + window
}

func (m RootModel) settingsView() string {
	if m.settings == nil {
		return RowDescStyle.Render("Loading settings…")
	}

	window := 0
	if m.height > 0 {
		window = max(m.height-14, 3)
	}
	start, end := settingsVisibleRange(len(m.settingRows), m.cursor, window)

	lines := make([]string, 0, end-start+4)
	for i := start; i < end; i++ {
		r := m.settingRows[i]
		cat := ""
		if i == start || m.settingRows[i-1].category != r.category {
			cat = r.category
		}
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		value := r.value(m.settings, m.toggles)
		if r.editable() {
			value = ToggleOnStyle.Render(value)
		} else {
			value = RowDescStyle.Render(value)
		}
		lines = append(lines, fmt.Sprintf("%s%-10s %-32s %s", cursor, cat, truncate(r.label(), 32), value))
	}

	if m.cursor < len(m.settingRows) {
		r := m.settingRows[m.cursor]
		desc := r.meta.Description
		if !r.editable() {
			desc += " Edit " + config.GetSettingsPath() + " to change it."
		}
		lines = append(lines, "", RowDescStyle.Render(desc))
	}
	lines = append(lines, HelpStyle.Render("Worker, network and directory settings apply the next time tsundoku starts."))
	return strings.Join(lines, "\n")
}
