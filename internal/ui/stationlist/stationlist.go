// Package stationlist renders the catalog as a selectable list.
package stationlist

import (
	"strings"

	"github.com/llehouerou/airwaves/internal/icons"
	"github.com/llehouerou/airwaves/internal/keymap"
	"github.com/llehouerou/airwaves/internal/ui"
	"github.com/llehouerou/airwaves/internal/ui/cursor"
	"github.com/llehouerou/airwaves/internal/ui/render"
	"github.com/llehouerou/airwaves/internal/ui/styles"
)

// Model is the station list. The selection is independent of the station
// being played; the parent decides what the action control applies to.
type Model struct {
	ui.Base
	names  []string
	cursor cursor.Cursor
	active int // -1 when nothing is opening or playing
}

// New creates a list over names with the first station selected.
func New(names []string) Model {
	return Model{
		names:  names,
		cursor: cursor.New(ui.ScrollMargin),
		active: -1,
	}
}

// Len returns the number of stations.
func (m Model) Len() int {
	return len(m.names)
}

// Selected returns the selected index.
func (m Model) Selected() int {
	return m.cursor.Pos()
}

// Select moves the selection to i, clamped to the list.
func (m *Model) Select(i int) {
	m.cursor.Jump(i, len(m.names), m.Height())
}

// SetActive marks the station being opened or played. Pass -1 to clear.
func (m *Model) SetActive(i int) {
	m.active = i
}

// SetSize sets the dimensions and keeps the selection visible.
func (m *Model) SetSize(width, height int) {
	m.Base.SetSize(width, height)
	m.cursor.EnsureVisible(len(m.names), height)
}

// Handle applies a navigation action and reports whether the selection moved.
func (m *Model) Handle(action keymap.Action) bool {
	before := m.cursor.Pos()
	n, h := len(m.names), m.Height()
	switch action {
	case keymap.ActionMoveUp:
		m.cursor.Move(-1, n, h)
	case keymap.ActionMoveDown:
		m.cursor.Move(1, n, h)
	case keymap.ActionJumpStart:
		m.cursor.JumpStart()
	case keymap.ActionJumpEnd:
		m.cursor.JumpEnd(n, h)
	default:
		return false
	}
	return m.cursor.Pos() != before
}

// View renders the visible rows, one station per line.
func (m Model) View() string {
	if m.Width() <= 0 || m.Height() <= 0 {
		return ""
	}
	s := styles.T().S()
	start, end := m.cursor.VisibleRange(len(m.names), m.Height())

	rows := make([]string, 0, m.Height())
	for i := start; i < end; i++ {
		line := render.TruncateAndPad(icons.FormatStation(m.names[i], i == m.active), m.Width())
		switch {
		case i == m.cursor.Pos() && i == m.active:
			line = s.Cursor.Inherit(s.Active).Render(line)
		case i == m.cursor.Pos():
			line = s.Cursor.Render(line)
		case i == m.active:
			line = s.Active.Render(line)
		default:
			line = s.Base.Render(line)
		}
		rows = append(rows, line)
	}
	for len(rows) < m.Height() {
		rows = append(rows, strings.Repeat(" ", m.Width()))
	}
	return strings.Join(rows, "\n")
}
