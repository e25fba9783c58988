package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/tui/colors"
	"github.com/tsundoku-app/tsundoku/internal/tui/components"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// QueueStatusLabel describes st for the More tab. Stopped has no label
// because the row is hidden.
func QueueStatusLabel(st queue.Status) string {
	switch st.Kind {
	case queue.KindPaused:
		return fmt.Sprintf("Paused · %d remaining", st.Pending)
	case queue.KindDownloading:
		return fmt.Sprintf("Downloading · %d remaining", st.Pending)
	}
	return ""
}

func (m RootModel) View() string {
	if m.confirmClear {
		modal := components.NewConfirmationModal(
			"Clear download queue?",
			fmt.Sprintf("%d items will be removed", m.status.Pending),
			"Finished files stay on disk",
			m.keys.Confirm,
			m.help,
			colors.Failed,
		)
		return modal.Centered(max(m.width, 50), max(m.height, 12))
	}

	tabs := []components.Tab{
		{Label: "More", Count: -1},
		{Label: "Queue", Count: len(m.items)},
		{Label: "History", Count: -1},
		{Label: "Settings", Count: -1},
	}

	var body string
	switch m.tab {
	case MoreTab:
		body = m.moreView()
	case QueueTab:
		body = m.queueView()
	case HistoryTab:
		body = m.historyView()
	case SettingsTab:
		body = m.settingsView()
	}

	sections := []string{
		LogoStyle.Render("tsundoku"),
		components.RenderTabBar(tabs, int(m.tab), ActiveTabStyle, TabStyle),
		"",
		body,
	}
	if m.err != nil {
		sections = append(sections, "", ErrorStyle.Render("Error: "+m.err.Error()))
	}
	sections = append(sections, "", HelpStyle.Render(m.help.View(m.keys.Main)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m RootModel) moreView() string {
	var rows []string

	switch m.status.Kind {
	case queue.KindDownloading:
		rows = append(rows, row(m.spinner.View()+" "+DownloadingStyle.Render("Download queue"), QueueStatusLabel(m.status)))
	case queue.KindPaused:
		rows = append(rows, row("⏸ "+PausedStyle.Render("Download queue"), QueueStatusLabel(m.status)))
	}

	rows = append(rows,
		toggleRow("Downloaded only", "Filters all entries in your library", m.toggles.DownloadedOnly),
		toggleRow("Incognito mode", "Pauses reading history", m.toggles.IncognitoMode),
	)

	if len(m.logs) > 0 {
		rows = append(rows, "", RowDescStyle.Render(strings.Join(m.logs, "\n")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func row(title, desc string) string {
	return lipgloss.JoinVertical(lipgloss.Left, RowTitleStyle.Render(title), "  "+RowDescStyle.Render(desc), "")
}

func toggleRow(title, desc string, on bool) string {
	box := ToggleOffStyle.Render("[ ]")
	if on {
		box = ToggleOnStyle.Render("[x]")
	}
	return row(box+" "+title, desc)
}

func (m RootModel) queueView() string {
	if len(m.items) == 0 {
		return RowDescStyle.Render("Nothing queued")
	}
	lines := make([]string, 0, len(m.items))
	for i, it := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		lines = append(lines, cursor+itemLine(it))
	}
	return strings.Join(lines, "\n")
}

func itemLine(it download.Item) string {
	progress := fmt.Sprintf("%d/%d", it.PagesDone, it.Pages())
	var st string
	switch it.State {
	case download.StateDownloading:
		st = DownloadingStyle.Render("downloading")
	case download.StateError:
		st = ErrorStyle.Render("error: " + it.Error)
	default:
		st = PausedStyle.Render("queued")
	}
	return fmt.Sprintf("%s  %-5s %-40s %7s  %s", utils.ShortID(it.ID), it.Kind, truncate(it.Title, 40), progress, st)
}

func (m RootModel) historyView() string {
	if len(m.history) == 0 {
		return RowDescStyle.Render("No finished downloads")
	}
	lines := make([]string, 0, len(m.history))
	for i, e := range m.history {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		when := time.Unix(e.CompletedAt, 0).Format("2006-01-02 15:04")
		took := (time.Duration(e.TimeTaken) * time.Millisecond).Round(time.Second)
		lines = append(lines, cursor+fmt.Sprintf("%s  %-5s %-40s %s  %s", when, e.Kind, truncate(e.Title, 40), DoneStyle.Render(fmt.Sprintf("%d files", e.Pages)), took))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
