package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application
type KeyMap struct {
	Main    MainKeyMap
	Confirm ConfirmKeyMap
}

// MainKeyMap defines keybindings shared by every tab
type MainKeyMap struct {
	NextTab        key.Binding
	PrevTab        key.Binding
	Pause          key.Binding
	Clear          key.Binding
	Remove         key.Binding
	Edit           key.Binding
	DownloadedOnly key.Binding
	Incognito      key.Binding
	Up             key.Binding
	Down           key.Binding
	Refresh        key.Binding
	Help           key.Binding
	Quit           key.Binding
	ForceQuit      key.Binding
}

// ConfirmKeyMap defines keybindings for confirmation dialogs
type ConfirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// Keys contains all the keybindings for the application
var Keys = KeyMap{
	Main: MainKeyMap{
		NextTab: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab", "prev tab"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause/resume"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear queue"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "remove item"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "change setting"),
		),
		DownloadedOnly: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "downloaded only"),
		),
		Incognito: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "incognito"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	},
	Confirm: ConfirmKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "cancel"),
		),
	},
}

// ShortHelp returns keybindings to show in the mini help view
func (k MainKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Pause, k.Clear, k.DownloadedOnly, k.Incognito, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k MainKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Up, k.Down},
		{k.Pause, k.Clear, k.Remove, k.Edit, k.Refresh},
		{k.DownloadedOnly, k.Incognito, k.Help, k.Quit},
	}
}

func (k ConfirmKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k ConfirmKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}
