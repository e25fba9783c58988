package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

type testKeys struct{ ok key.Binding }

func (k testKeys) ShortHelp() []key.Binding  { return []key.Binding{k.ok} }
func (k testKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{k.ok}} }

func TestRenderTabBar(t *testing.T) {
	plain := lipgloss.NewStyle()
	got := RenderTabBar([]Tab{{Label: "More", Count: -1}, {Label: "Queue", Count: 3}}, 1, plain, plain)
	if !strings.Contains(got, "More") || !strings.Contains(got, "Queue (3)") {
		t.Errorf("RenderTabBar() = %q", got)
	}
	if strings.Contains(got, "More (") {
		t.Error("negative count should hide the counter")
	}
}

func TestConfirmationModal(t *testing.T) {
	keys := testKeys{ok: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm"))}
	m := NewConfirmationModal("Clear queue?", "Remove 4 items", "manga and anime", keys, help.New(), lipgloss.Color("1"))

	view := m.Centered(80, 20)
	for _, want := range []string{"Clear queue?", "Remove 4 items", "manga and anime", "confirm"} {
		if !strings.Contains(view, want) {
			t.Errorf("modal is missing %q:\n%s", want, view)
		}
	}
	if lipgloss.Height(view) != 20 {
		t.Errorf("modal height = %d, want 20", lipgloss.Height(view))
	}
}
