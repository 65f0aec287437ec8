package guard

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/report"
)

type recorder struct {
	got []report.Failure
}

func (r *recorder) Report(op errmsg.Op, message string) {
	r.got = append(r.got, report.Failure{Op: op, Message: message})
}

func TestRecover_ReportsPanic(t *testing.T) {
	rec := &recorder{}

	func() {
		defer Recover(rec, errmsg.OpOpenSource)
		panic("bad handle")
	}()

	require.Len(t, rec.got, 1)
	assert.Equal(t, errmsg.OpOpenSource, rec.got[0].Op)
	assert.Equal(t, "panic: bad handle", rec.got[0].Message)
}

func TestRecover_NoPanicNoReport(t *testing.T) {
	rec := &recorder{}

	func() {
		defer Recover(rec, errmsg.OpOpenSource)
	}()

	assert.Empty(t, rec.got)
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		wantOK  bool
		wantMsg string
	}{
		{
			name:   "success",
			fn:     func() error { return nil },
			wantOK: true,
		},
		{
			name:    "error",
			fn:      func() error { return errors.New("disk full") },
			wantMsg: "disk full",
		},
		{
			name:    "panic",
			fn:      func() error { panic("nil map") },
			wantMsg: "panic: nil map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}

			ok := Run(rec, errmsg.OpStateSave, tt.fn)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Empty(t, rec.got)
				return
			}
			require.Len(t, rec.got, 1)
			assert.Equal(t, tt.wantMsg, rec.got[0].Message)
		})
	}
}

var explodingSink = report.Func(func(errmsg.Op, string) { panic("sink exploded") })

func TestRecover_PanickingSinkIsContained(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover(explodingSink, errmsg.OpOpenSource)
		panic("bad handle")
	})
}

func TestRun_PanickingSinkIsContained(t *testing.T) {
	var ok bool
	assert.NotPanics(t, func() {
		ok = Run(explodingSink, errmsg.OpStateSave, func() error { return errors.New("disk full") })
	})
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		ok = Run(explodingSink, errmsg.OpStateSave, func() error { panic("nil map") })
	})
	assert.False(t, ok)
}

func TestReport(t *testing.T) {
	rec := &recorder{}
	assert.True(t, Report(rec, errmsg.OpOpenSource, "refused"))
	require.Len(t, rec.got, 1)
	assert.Equal(t, "refused", rec.got[0].Message)

	assert.False(t, Report(explodingSink, errmsg.OpOpenSource, "refused"))
}

// panicky is a tea.Model whose behavior is selected per message.
type panicky struct {
	count     int
	viewPanic bool
}

type bumpMsg struct{}
type explodeMsg struct{}
type explodeCmdMsg struct{}

func (p panicky) Init() tea.Cmd { return nil }

func (p panicky) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case bumpMsg:
		p.count++
	case explodeMsg:
		p.count = 100
		panic("update exploded")
	case explodeCmdMsg:
		return p, tea.Batch(
			func() tea.Msg { panic("cmd exploded") },
			func() tea.Msg { return bumpMsg{} },
		)
	}
	return p, nil
}

func (p panicky) View() string {
	if p.viewPanic {
		panic("view exploded")
	}
	return "count " + string(rune('0'+p.count))
}

func TestModel_UpdatePanicKeepsPreviousModel(t *testing.T) {
	rec := &recorder{}
	m := Wrap(panicky{}, rec)

	next, _ := m.Update(bumpMsg{})
	next, cmd := next.Update(explodeMsg{})

	assert.Nil(t, cmd)
	inner, ok := next.(Model).Inner().(panicky)
	require.True(t, ok)
	assert.Equal(t, 1, inner.count)
	require.Len(t, rec.got, 1)
	assert.Equal(t, errmsg.OpDialogCallback, rec.got[0].Op)
	assert.Equal(t, "panic: update exploded", rec.got[0].Message)
}

func TestModel_ViewPanicShowsLastFrame(t *testing.T) {
	rec := &recorder{}
	m := Wrap(panicky{count: 2}, rec)

	assert.Equal(t, "count 2", m.View())

	m.inner = panicky{count: 3, viewPanic: true}
	assert.Equal(t, "count 2", m.View())
	require.Len(t, rec.got, 1)
	assert.Equal(t, "panic: view exploded", rec.got[0].Message)
}

func TestModel_GuardsBatchedCommands(t *testing.T) {
	rec := &recorder{}
	m := Wrap(panicky{}, rec)

	_, cmd := m.Update(explodeCmdMsg{})
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)

	var msgs []tea.Msg
	for _, c := range batch {
		if c != nil {
			msgs = append(msgs, c())
		}
	}

	assert.Contains(t, msgs, tea.Msg(bumpMsg{}))
	require.Len(t, rec.got, 1)
	assert.Equal(t, "panic: cmd exploded", rec.got[0].Message)
}
