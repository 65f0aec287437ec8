// internal/app/update.go
package app

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/guard"
	"github.com/llehouerou/airwaves/internal/keymap"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
	"github.com/llehouerou/airwaves/internal/state"
	"github.com/llehouerou/airwaves/internal/ui"
	"github.com/llehouerou/airwaves/internal/ui/helpbindings"
	"github.com/llehouerou/airwaves/internal/ui/layout"
	"github.com/llehouerou/airwaves/internal/ui/statusbar"
)

// Update handles messages and returns updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.stations.SetSize(layout.ListWidth(msg.Width), m.listHeight())
		m.help.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		return m.handleStateChanged(msg)

	case SessionClosedMsg:
		m.snapshot = m.ctrl.Snapshot()
		m.stations.SetActive(-1)
		return m, nil

	case FailureMsg:
		m.failure = report.Failure(msg)
		m.overlay = overlayFailure
		return m, m.watchFailures()

	case StderrMsg:
		m.notice = msg.Line
		return m, m.watchStderr()

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case HistoryMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("load play history")
			guard.Report(m.rep, errmsg.OpStateLoad, errmsg.Describe(msg.Err))
			return m, nil
		}
		m.history = msg.Plays
		m.overlay = overlayHistory
		return m, nil

	case playRecordedMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("record play")
		}
		return m, nil

	case helpbindings.CloseMsg:
		m.overlay = overlayNone
		return m, nil
	}

	return m, nil
}

func (m Model) handleStateChanged(msg StateChangedMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	cmds := []tea.Cmd{m.watchSession()}
	if msg.Current == session.Playing {
		cmds = append(cmds, m.recordPlayCmd(state.Play{
			StationName: m.snapshot.Source.Name,
			StationURI:  m.snapshot.Source.URI,
			Title:       m.snapshot.Title,
			StartedAt:   time.Now(),
		}))
	}
	return m, tea.Batch(cmds...)
}

// refresh takes a new snapshot of the session.
func (m *Model) refresh() {
	m.snapshot = m.ctrl.Snapshot()
	if m.snapshot.State.IsActive() {
		m.stations.SetActive(m.snapshot.Index)
	} else {
		m.stations.SetActive(-1)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keys.Resolve(m.keyMode(), msg.String())
	if action == keymap.ActionQuit {
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayHelp:
		var cmd tea.Cmd
		m.help, cmd = m.help.Update(msg)
		return m, cmd
	case overlayFailure, overlayHistory:
		if action == keymap.ActionDismiss {
			m.overlay = overlayNone
		}
		return m, nil
	case overlayNone:
	}

	switch action {
	case keymap.ActionMoveUp, keymap.ActionMoveDown, keymap.ActionJumpStart, keymap.ActionJumpEnd:
		if m.stations.Handle(action) {
			m.saveUI()
		}
	case keymap.ActionToggle:
		index := m.stations.Selected()
		guard.Run(m.rep, toggleOp(m.ctrl.State()), func() error {
			return m.ctrl.Toggle(index)
		})
		m.refresh()
	case keymap.ActionStop:
		guard.Run(m.rep, errmsg.OpPlaybackStop, func() error {
			m.ctrl.Stop()
			return nil
		})
		m.refresh()
	case keymap.ActionVolumeUp:
		m.setVolume(m.volume.Volume() + volumeStep)
	case keymap.ActionVolumeDown:
		m.setVolume(m.volume.Volume() - volumeStep)
	case keymap.ActionHelp:
		m.overlay = overlayHelp
	case keymap.ActionHistory:
		return m, m.loadHistoryCmd()
	}
	return m, nil
}

// keyMode is the keymap mode for the current overlay.
func (m Model) keyMode() keymap.Mode {
	switch m.overlay {
	case overlayHelp:
		return keymap.ModeHelp
	case overlayFailure:
		return keymap.ModeFailure
	case overlayHistory:
		return keymap.ModeHistory
	case overlayNone:
	}
	return keymap.ModeMain
}

// toggleOp labels a toggle failure by what the toggle was about to do.
func toggleOp(s session.State) errmsg.Op {
	if s == session.Stopped {
		return errmsg.OpPlaybackStart
	}
	return errmsg.OpPlaybackStop
}

func (m Model) setVolume(level float64) {
	// Round to the step so repeated presses land on whole percentages.
	level = float64(int(level/volumeStep+0.5)) * volumeStep
	m.volume.SetVolume(max(0, min(1, level)))
	m.saveUI()
}

func (m Model) listHeight() int {
	return layout.ListHeight(m.height, layout.ContentOpts{
		HeaderHeight: ui.HeaderHeight,
		StatusHeight: statusbar.Height,
	})
}
