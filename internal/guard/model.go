package guard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/report"
)

// Compile-time check that Model implements tea.Model.
var _ tea.Model = Model{}

// frame holds the last successfully rendered view.
type frame struct {
	view string
}

// Model wraps a tea.Model so that a panic in Init, Update, View or any
// command they return is reported instead of tearing down the program.
type Model struct {
	inner tea.Model
	rep   report.Reporter
	last  *frame
}

// Wrap guards m, reporting faults to rep.
func Wrap(m tea.Model, rep report.Reporter) Model {
	return Model{inner: m, rep: rep, last: &frame{}}
}

// Inner returns the wrapped model.
func (m Model) Inner() tea.Model {
	return m.inner
}

func (m Model) Init() (cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			Report(m.rep, errmsg.OpDialogCallback, errmsg.DescribePanic(r))
			cmd = nil
		}
	}()
	return m.guardCmd(m.inner.Init())
}

// Update forwards msg. On panic the previous inner model is kept.
func (m Model) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			Report(m.rep, errmsg.OpDialogCallback, errmsg.DescribePanic(r))
			model, cmd = m, nil
		}
	}()
	inner, innerCmd := m.inner.Update(msg)
	m.inner = inner
	return m, m.guardCmd(innerCmd)
}

// View renders the inner model. On panic the last good frame is shown.
func (m Model) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			Report(m.rep, errmsg.OpDialogCallback, errmsg.DescribePanic(r))
			view = m.last.view
		}
	}()
	view = m.inner.View()
	m.last.view = view
	return view
}

// guardCmd wraps cmd so that a panic while it runs is reported. Batches are
// unpacked so each command inside is guarded too.
func (m Model) guardCmd(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				Report(m.rep, errmsg.OpDialogCallback, errmsg.DescribePanic(r))
				msg = nil
			}
		}()
		msg = cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			guarded := make(tea.BatchMsg, len(batch))
			for i, c := range batch {
				guarded[i] = m.guardCmd(c)
			}
			return guarded
		}
		return msg
	}
}
