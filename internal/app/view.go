// internal/app/view.go
package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/airwaves/internal/icons"
	"github.com/llehouerou/airwaves/internal/keymap"
	"github.com/llehouerou/airwaves/internal/ui/layout"
	"github.com/llehouerou/airwaves/internal/ui/popup"
	"github.com/llehouerou/airwaves/internal/ui/render"
	"github.com/llehouerou/airwaves/internal/ui/statusbar"
	"github.com/llehouerou/airwaves/internal/ui/styles"
)

const appName = "airwaves"

// View renders the application UI.
func (m Model) View() string {
	if layout.TooSmall(m.width, m.height) {
		return ""
	}
	s := styles.T().S()

	header := render.Row(
		styles.Banner(appName),
		s.Muted.Render(fmt.Sprintf("%d stations", m.catalog.Len())),
		m.width,
	)

	list := styles.Panel(false).
		Padding(0, 1).
		Width(layout.PanelWidth(m.width)).
		Render(m.stations.View())

	bar := statusbar.Render(m.statusState(), m.width)

	base := strings.Join([]string{header, "", list, bar, m.hintLine()}, "\n")

	if over := m.renderOverlay(); over != "" {
		return popup.Compose(base, over, m.width, m.height)
	}
	return base
}

func (m Model) statusState() statusbar.State {
	st := statusbar.State{
		Session: m.snapshot.State,
		Title:   m.snapshot.Title,
		Stats:   m.snapshot.Stats,
		Volume:  m.volume.Volume(),
		Keys:    m.toggleKey(),
	}
	if m.snapshot.State.IsActive() {
		st.Station = m.snapshot.Source.Name
		st.Spinner = m.spinner.View()
	} else if src, err := m.catalog.At(m.stations.Selected()); err == nil {
		st.Station = src.Name
	}
	return st
}

// toggleKey is the first key bound to the action control.
func (m Model) toggleKey() string {
	if keys := m.keys.KeysFor(keymap.ModeMain, keymap.ActionToggle); len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// hintLine shows the last native library message, or the key hints.
func (m Model) hintLine() string {
	s := styles.T().S()
	if m.notice != "" {
		return s.Warning.Render(render.Truncate(icons.Error()+render.Sanitize(m.notice), m.width))
	}
	return s.Subtle.Render(render.Truncate("↑/↓ select · enter play/stop · +/- volume · h history · ? help · q quit", m.width))
}

func (m Model) renderOverlay() string {
	switch m.overlay {
	case overlayHelp:
		return m.help.View()
	case overlayFailure:
		return popup.Error(
			icons.Error()+m.failure.Title(),
			m.failure.Message,
			"esc/enter close",
		).Render(m.width, m.height)
	case overlayHistory:
		return popup.New("Recently played", m.historyContent(), "esc/h close").Render(m.width, m.height)
	case overlayNone:
	}
	return ""
}

func (m Model) historyContent() string {
	if len(m.history) == 0 {
		return styles.T().S().Muted.Render("Nothing played yet")
	}
	s := styles.T().S()
	nameWidth := 0
	for _, p := range m.history {
		nameWidth = max(nameWidth, lipgloss.Width(p.StationName))
	}
	lines := make([]string, len(m.history))
	for i, p := range m.history {
		line := s.Muted.Render(p.StartedAt.Local().Format("Jan 02 15:04")) + "  " +
			s.Title.Render(render.TruncateAndPad(p.StationName, nameWidth))
		if p.Title != "" {
			line += "  " + s.Base.Render(render.Sanitize(p.Title))
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
