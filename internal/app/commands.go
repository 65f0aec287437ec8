// internal/app/commands.go
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/airwaves/internal/state"
)

const tickInterval = time.Second

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// watchSession waits for the next controller event.
func (m Model) watchSession() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return StateChangedMsg(e)
		case <-sub.Done:
			return SessionClosedMsg{}
		}
	}
}

// watchFailures waits for the next failure. Returns nil without a source.
func (m Model) watchFailures() tea.Cmd {
	if m.failures == nil {
		return nil
	}
	ch := m.failures
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return FailureMsg(f)
	}
}

// watchStderr waits for the next captured stderr line.
func (m Model) watchStderr() tea.Cmd {
	if m.stderr == nil {
		return nil
	}
	ch := m.stderr
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return StderrMsg{Line: line}
	}
}

// recordPlayCmd writes play to history off the update loop.
func (m Model) recordPlayCmd(play state.Play) tea.Cmd {
	if m.state == nil {
		return nil
	}
	st := m.state
	return func() tea.Msg {
		return playRecordedMsg{Err: st.RecordPlay(play)}
	}
}

// loadHistoryCmd reads the most recent plays.
func (m Model) loadHistoryCmd() tea.Cmd {
	st := m.state
	return func() tea.Msg {
		if st == nil {
			return HistoryMsg{}
		}
		plays, err := st.RecentPlays(historyLimit)
		return HistoryMsg{Plays: plays, Err: err}
	}
}
