// Package helpbindings provides a scrollable popup listing the key bindings.
package helpbindings

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/airwaves/internal/keymap"
	"github.com/llehouerou/airwaves/internal/ui"
	"github.com/llehouerou/airwaves/internal/ui/popup"
	"github.com/llehouerou/airwaves/internal/ui/styles"
)

// categoryLabels maps context names to display labels.
var categoryLabels = map[string]string{
	keymap.ContextGlobal:    "Global",
	keymap.ContextInterrupt: "Anywhere",
	keymap.ContextStations:  "Stations",
	keymap.ContextPlayback:  "Playback",
	keymap.ContextPopup:     "Popups",
}

// CloseMsg asks the parent to hide the help popup.
type CloseMsg struct{}

// Model holds the state for the help bindings popup.
type Model struct {
	ui.Base
	keys         *keymap.Resolver
	lines        []string
	scrollOffset int
}

// New creates a help model over every binding context.
func New() Model {
	return Model{keys: keymap.Default(), lines: buildLines(keymap.Contexts())}
}

// Update scrolls and closes with the help mode bindings.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.keys.Resolve(keymap.ModeHelp, keyMsg.String()) {
	case keymap.ActionDismiss:
		return m, func() tea.Msg { return CloseMsg{} }
	case keymap.ActionMoveDown:
		if m.scrollOffset < m.maxScroll() {
			m.scrollOffset++
		}
	case keymap.ActionMoveUp:
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
	}
	return m, nil
}

// View renders the popup centered in the component size.
func (m Model) View() string {
	if m.Width() == 0 || m.Height() == 0 {
		return ""
	}

	end := min(m.scrollOffset+m.visibleHeight(), len(m.lines))
	visible := m.lines[min(m.scrollOffset, end):end]

	d := popup.New("Help", strings.Join(visible, "\n"), m.footer())
	d.Width = maxWidth(m.lines) + 2
	return d.Render(m.Width(), m.Height())
}

func buildLines(contexts []string) []string {
	s := styles.T().S()
	descStyle := s.Base
	headerStyle := lipgloss.NewStyle().Foreground(styles.T().Secondary).Bold(true)

	var bindings []keymap.Binding
	for _, ctx := range contexts {
		bindings = append(bindings, keymap.ByContext(ctx)...)
	}

	keyWidth := 0
	for _, b := range bindings {
		keyWidth = max(keyWidth, len(keyLabel(b.Keys)))
	}

	var lines []string
	current := ""
	for _, b := range bindings {
		if b.Context != current {
			if current != "" {
				lines = append(lines, "")
			}
			label := categoryLabels[b.Context]
			if label == "" {
				label = b.Context
			}
			lines = append(lines,
				headerStyle.Render(label),
				s.Subtle.Render(strings.Repeat("─", keyWidth+15)))
			current = b.Context
		}
		key := keyLabel(b.Keys)
		lines = append(lines, s.Key.Render(key+strings.Repeat(" ", keyWidth-len(key)))+"  "+descStyle.Render(b.Description))
	}
	return lines
}

// keyLabel joins keys for display, spelling out the space bar.
func keyLabel(keys []string) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		if k == " " {
			k = "space"
		}
		names[i] = k
	}
	return strings.Join(names, ", ")
}

func maxWidth(lines []string) int {
	w := 0
	for _, l := range lines {
		w = max(w, lipgloss.Width(l))
	}
	return w
}

func (m Model) footer() string {
	if len(m.lines) <= m.visibleHeight() {
		return "?/esc close"
	}
	return "j/k scroll · ?/esc close"
}

func (m Model) visibleHeight() int {
	// Leave room for the title, footer and border.
	return max(m.Height()-8, 3)
}

func (m Model) maxScroll() int {
	return max(len(m.lines)-m.visibleHeight(), 0)
}
