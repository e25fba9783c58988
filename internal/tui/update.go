package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case streamsOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			utils.Debug("TUI: failed to open streams: %v", msg.err)
			return m, nil
		}
		m.statusCh = msg.status
		m.eventCh = msg.events
		return m, tea.Batch(listenForStatus(m.statusCh), listenForEvents(m.eventCh))

	case statusMsg:
		prev := m.status
		m.status = queue.Status(msg)
		cmds := []tea.Cmd{listenForStatus(m.statusCh)}
		// The item list changes together with the pending count.
		if prev != m.status {
			cmds = append(cmds, refresh(m.service))
		}
		return m, tea.Batch(cmds...)

	case streamClosedMsg:
		m.status = queue.Stopped()
		return m, nil

	case eventMsg:
		m.addLog(msg.msg)
		cmds := []tea.Cmd{listenForEvents(m.eventCh)}
		switch msg.msg.(type) {
		case download.ItemCompleteMsg, download.ItemErrorMsg, download.ItemStartedMsg:
			cmds = append(cmds, refresh(m.service))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.items = msg.items
		m.history = msg.history
		m.toggles = msg.toggles
		m.clampCursor()
		return m, nil

	case togglesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.toggles = msg.toggles
		return m, nil

	case settingsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if m.settings != nil && m.settings.General.Theme != msg.settings.General.Theme {
			ApplyTheme(msg.settings.General.Theme)
		}
		m.settings = msg.settings
		return m, nil

	case actionDoneMsg:
		m.err = msg.err
		return m, refresh(m.service)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.confirmClear {
			return m.updateConfirm(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m RootModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm.Confirm):
		m.confirmClear = false
		return m, runAction(m.service.Clear)
	case key.Matches(msg, m.keys.Confirm.Cancel):
		m.confirmClear = false
	}
	return m, nil
}

func (m RootModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys.Main
	switch {
	case key.Matches(msg, k.ForceQuit), key.Matches(msg, k.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, k.NextTab):
		m.tab = (m.tab + 1) % tabCount
		m.cursor = 0

	case key.Matches(msg, k.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.cursor = 0

	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, k.Down):
		m.cursor++
		m.clampCursor()

	case key.Matches(msg, k.Pause):
		switch m.status.Kind {
		case queue.KindDownloading:
			return m, runAction(m.service.Pause)
		case queue.KindPaused:
			return m, runAction(m.service.Resume)
		}

	case key.Matches(msg, k.Clear):
		if m.status.Pending > 0 {
			m.confirmClear = true
		}

	case key.Matches(msg, k.Remove):
		if m.tab == QueueTab && m.cursor < len(m.items) {
			id := m.items[m.cursor].ID
			return m, runAction(func() error { return m.service.Remove(id) })
		}

	case key.Matches(msg, k.DownloadedOnly):
		v := !m.toggles.DownloadedOnly
		return m, setToggles(m.service, core.ToggleRequest{DownloadedOnly: &v})

	case key.Matches(msg, k.Incognito):
		v := !m.toggles.IncognitoMode
		return m, setToggles(m.service, core.ToggleRequest{IncognitoMode: &v})

	case key.Matches(msg, k.Edit):
		if m.tab == SettingsTab && m.cursor < len(m.settingRows) {
			if r := m.settingRows[m.cursor]; r.editable() {
				return m, m.editSetting(r)
			}
		}

	case key.Matches(msg, k.Refresh):
		if m.tab == SettingsTab {
			return m, tea.Batch(refresh(m.service), loadSettings(m.loadSettings))
		}
		return m, refresh(m.service)

	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *RootModel) clampCursor() {
	n := 0
	switch m.tab {
	case QueueTab:
		n = len(m.items)
	case HistoryTab:
		n = len(m.history)
	case SettingsTab:
		n = len(m.settingRows)
	}
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// addLog records a one line description of a download event.
func (m *RootModel) addLog(msg any) {
	var line string
	switch e := msg.(type) {
	case download.ItemStartedMsg:
		line = fmt.Sprintf("Started %s (%d files)", e.Title, e.Pages)
	case download.ItemCompleteMsg:
		line = fmt.Sprintf("Finished %s in %s", e.Title, e.Elapsed.Round(time.Second))
	case download.ItemErrorMsg:
		line = fmt.Sprintf("Failed %s: %s", e.Title, e.Message)
	case download.ItemRemovedMsg:
		line = fmt.Sprintf("Removed %s", e.Title)
	default:
		return
	}
	m.logs = append(m.logs, time.Now().Format("15:04:05")+" "+line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}
