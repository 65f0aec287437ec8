// Package statusbar renders the session line: state, station, stream title,
// transfer statistics and the action control.
package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/airwaves/internal/engine"
	"github.com/llehouerou/airwaves/internal/icons"
	"github.com/llehouerou/airwaves/internal/session"
	"github.com/llehouerou/airwaves/internal/ui/render"
	"github.com/llehouerou/airwaves/internal/ui/styles"
)

// State holds everything needed to render the bar.
type State struct {
	Session session.State
	Station string // selected station when stopped, active one otherwise
	Title   string
	Stats   engine.Stats
	Volume  float64
	Spinner string // current spinner frame, shown while opening
	Keys    string // keys bound to the action control, e.g. "enter"
}

// Height is the rendered height including the border.
const Height = 5

// Render returns the bar for the given total width.
func Render(s State, width int) string {
	inner := max(width-4, 10)
	st := styles.T().S()

	var status string
	switch s.Session {
	case session.Opening:
		status = st.Warning.Render(strings.TrimSpace(s.Spinner + " Opening"))
	case session.Playing:
		status = st.Success.Render("Playing")
	default:
		status = st.Muted.Render("Stopped")
	}
	control := st.Key.Render(s.Keys) + " " + st.Title.Render(icons.Action(s.Session.Label()))
	station := st.Title.Render(render.Truncate(s.Station, inner-lipgloss.Width(status)-lipgloss.Width(control)-3))
	top := render.Row(status+"  "+station, control, inner)

	title := st.Muted.Render("No stream title")
	if t := render.Sanitize(strings.TrimSpace(s.Title)); t != "" {
		title = lipgloss.NewStyle().Foreground(styles.T().Secondary).
			Render(render.Truncate(icons.Title()+t, inner))
	}

	volume := st.Muted.Render(fmt.Sprintf("%s%3d%%", icons.Volume(), int(s.Volume*100+0.5)))
	bottom := render.Row(st.Subtle.Render(statsLine(s)), volume, inner)

	return styles.Panel(s.Session.IsActive()).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join([]string{top, title, bottom}, "\n"))
}

// statsLine describes the stream: format, rate, bytes read and underruns.
func statsLine(s State) string {
	if s.Session != session.Playing {
		return ""
	}
	var parts []string
	if s.Stats.Format != "" {
		parts = append(parts, s.Stats.Format)
	}
	if s.Stats.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%.1f kHz", float64(s.Stats.SampleRate)/1000))
	}
	parts = append(parts, humanize.IBytes(uint64(max(s.Stats.BytesReceived, 0))))
	if s.Stats.Underruns > 0 {
		parts = append(parts, humanize.Comma(s.Stats.Underruns)+" underruns")
	}
	return strings.Join(parts, " · ")
}
