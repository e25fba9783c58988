package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
)

// Tab identifies a screen of the UI
type Tab int

const (
	MoreTab Tab = iota
	QueueTab
	HistoryTab
	SettingsTab
	tabCount
)

const (
	historyLimit = 50
	maxLogLines  = 5
)

// statusMsg carries a new combined queue status.
type statusMsg queue.Status

// streamClosedMsg reports that the status stream ended.
type streamClosedMsg struct{}

// eventMsg wraps a download event from the service.
type eventMsg struct{ msg any }

// snapshotMsg carries a fresh copy of the service state.
type snapshotMsg struct {
	items   []download.Item
	history []download.HistoryEntry
	toggles core.Toggles
	err     error
}

// togglesMsg reports the result of changing a toggle.
type togglesMsg struct {
	toggles core.Toggles
	err     error
}

// actionDoneMsg reports the result of pause, resume, clear or remove.
type actionDoneMsg struct{ err error }

// RootModel is the bubbletea model of the application.
type RootModel struct {
	service core.Service

	ctx    context.Context
	cancel context.CancelFunc

	statusCh <-chan queue.Status
	eventCh  <-chan any

	width  int
	height int
	tab    Tab
	cursor int

	status  queue.Status
	toggles core.Toggles
	items   []download.Item
	history []download.HistoryEntry
	logs    []string
	err     error

	settings     *config.Settings
	settingRows  []settingRow
	loadSettings func() (*config.Settings, error)
	saveSettings func(*config.Settings) error

	confirmClear bool
	spinner      spinner.Model
	help         help.Model
	keys         KeyMap
}

// NewRootModel creates the model. Streams are opened in Init and closed
// by Close.
func NewRootModel(service core.Service) RootModel {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = DownloadingStyle

	return RootModel{
		service: service,
		ctx:     ctx,
		cancel:  cancel,
		status:  queue.Stopped(),
		spinner: s,
		help:    help.New(),
		keys:    Keys,

		settingRows:  buildSettingRows(),
		loadSettings: config.LoadSettings,
		saveSettings: config.SaveSettings,
	}
}

// Close stops the model's streams.
func (m RootModel) Close() {
	m.cancel()
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(
		openStreams(m.ctx, m.service),
		refresh(m.service),
		loadSettings(m.loadSettings),
		m.spinner.Tick,
	)
}

// streamsOpenedMsg hands the opened streams to the model.
type streamsOpenedMsg struct {
	status <-chan queue.Status
	events <-chan any
	err    error
}

func openStreams(ctx context.Context, svc core.Service) tea.Cmd {
	return func() tea.Msg {
		status, err := svc.StreamStatus(ctx)
		if err != nil {
			return streamsOpenedMsg{err: err}
		}
		events, err := svc.StreamEvents(ctx)
		return streamsOpenedMsg{status: status, events: events, err: err}
	}
}

func listenForStatus(ch <-chan queue.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return statusMsg(st)
	}
}

func listenForEvents(ch <-chan any) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{msg: msg}
	}
}

func refresh(svc core.Service) tea.Cmd {
	return func() tea.Msg {
		var snap snapshotMsg
		if snap.items, snap.err = svc.Queue(); snap.err != nil {
			return snap
		}
		if snap.history, snap.err = svc.History(historyLimit); snap.err != nil {
			return snap
		}
		snap.toggles, snap.err = svc.Toggles()
		return snap
	}
}

func setToggles(svc core.Service, req core.ToggleRequest) tea.Cmd {
	return func() tea.Msg {
		t, err := svc.SetToggles(req)
		return togglesMsg{toggles: t, err: err}
	}
}

func runAction(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn()}
	}
}
