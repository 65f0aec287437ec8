package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/airwaves/internal/catalog"
	"github.com/llehouerou/airwaves/internal/engine"
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/icons"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
	"github.com/llehouerou/airwaves/internal/state"
	"github.com/llehouerou/airwaves/internal/ui/testutil"
)

type fakeVolume struct {
	mu    sync.Mutex
	level float64
}

func (v *fakeVolume) SetVolume(level float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.level = level
}

func (v *fakeVolume) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level
}

type fixture struct {
	model    Model
	engine   *engine.Mock
	ctrl     *session.Controller
	state    *state.Mock
	volume   *fakeVolume
	failures *report.Channel
}

func newFixture(t *testing.T, st *state.Mock) *fixture {
	t.Helper()
	icons.Init("none")
	if st == nil {
		st = state.NewMock()
	}
	failures := report.NewChannel(4)
	eng := engine.NewMock()
	cat := catalog.Default()
	ctrl := session.New(eng, cat, failures)
	t.Cleanup(func() { _ = ctrl.Close() })

	f := &fixture{
		engine:   eng,
		ctrl:     ctrl,
		state:    st,
		volume:   &fakeVolume{level: 0.5},
		failures: failures,
	}
	f.model = New(Deps{
		Controller: ctrl,
		Catalog:    cat,
		Volume:     f.volume,
		State:      st,
		Reporter:   failures,
		Failures:   failures.C(),
		Logger:     zerolog.Nop(),
	})
	f.update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return f
}

func (f *fixture) update(msg tea.Msg) tea.Cmd {
	m, cmd := f.model.Update(msg)
	f.model = m.(Model)
	return cmd
}

func (f *fixture) press(key string) tea.Cmd {
	return f.update(testutil.Key(key))
}

// nextEvent feeds the next buffered controller event to the model.
func (f *fixture) nextEvent(t *testing.T) tea.Cmd {
	t.Helper()
	msgs := drain(f.model.watchSession(), time.Second)
	require.Len(t, msgs, 1)
	return f.update(msgs[0])
}

// drain runs cmd and any batch inside it, giving up on commands that are
// still blocked after wait.
func drain(cmd tea.Cmd, wait time.Duration) []tea.Msg {
	if cmd == nil {
		return nil
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var all []tea.Msg
			for _, c := range batch {
				all = append(all, drain(c, wait)...)
			}
			return all
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(wait):
		return nil
	}
}

func TestNew_RestoresSelectionByURI(t *testing.T) {
	kalx, err := catalog.Default().At(3)
	require.NoError(t, err)
	st := state.NewMock().WithUI(state.UIState{StationIndex: 0, StationURI: kalx.URI, Volume: 0.25})

	f := newFixture(t, st)

	assert.Equal(t, 3, f.model.stations.Selected())
	assert.InDelta(t, 0.25, f.volume.Volume(), 1e-9)
}

func TestNew_FallsBackToSavedIndex(t *testing.T) {
	st := state.NewMock().WithUI(state.UIState{StationIndex: 2, StationURI: "http://gone.example", Volume: 3})

	f := newFixture(t, st)

	assert.Equal(t, 2, f.model.stations.Selected())
	assert.InDelta(t, 0.5, f.volume.Volume(), 1e-9, "out of range volume ignored")
}

func TestToggle_StartsThenStops(t *testing.T) {
	f := newFixture(t, nil)
	f.press("j")

	f.press("enter")

	require.Len(t, f.engine.Handles(), 1)
	assert.Equal(t, session.Opening, f.model.snapshot.State)
	assert.Equal(t, 1, f.model.snapshot.Index)
	view := testutil.Plain(f.model.View())
	assert.Contains(t, view, "Opening")
	assert.Contains(t, view, "enter stop")

	f.press("enter")

	assert.True(t, f.engine.Last().Canceled())
	assert.Equal(t, session.Stopped, f.model.snapshot.State)
	assert.Contains(t, testutil.Plain(f.model.View()), "enter play")
}

func TestPlaying_RecordsHistory(t *testing.T) {
	f := newFixture(t, nil)
	f.press("enter")
	f.nextEvent(t) // Stopped -> Opening

	f.engine.Last().Succeed()
	cmd := f.nextEvent(t) // Opening -> Playing

	for _, msg := range drain(cmd, 50*time.Millisecond) {
		f.update(msg)
	}
	plays := f.state.Plays()
	require.Len(t, plays, 1)
	assert.Equal(t, "Deepinradio", plays[0].StationName)
	assert.Equal(t, session.Playing, f.model.snapshot.State)
	assert.Contains(t, testutil.Plain(f.model.View()), "Playing")
}

func TestFailure_ShowsModalPopup(t *testing.T) {
	f := newFixture(t, nil)
	f.press("enter")
	f.engine.Last().Fail(engine.CodeFailed)

	msgs := drain(f.model.watchFailures(), time.Second)
	require.Len(t, msgs, 1)
	f.update(msgs[0])

	require.Equal(t, overlayFailure, f.model.overlay)
	view := testutil.Plain(f.model.View())
	assert.Contains(t, view, "Failed to open music source")
	assert.Contains(t, view, "0x80004005")

	f.press("j")
	assert.Equal(t, 0, f.model.stations.Selected(), "keys are swallowed by the popup")

	f.press("esc")
	assert.Equal(t, overlayNone, f.model.overlay)
}

func TestFailure_QDismissesInsteadOfQuitting(t *testing.T) {
	f := newFixture(t, nil)
	f.press("enter")
	f.engine.Last().Fail(engine.CodeFailed)
	msgs := drain(f.model.watchFailures(), time.Second)
	require.Len(t, msgs, 1)
	f.update(msgs[0])
	require.Equal(t, overlayFailure, f.model.overlay)

	cmd := f.press("q")
	assert.Nil(t, cmd)
	assert.Equal(t, overlayNone, f.model.overlay)
}

func TestVolumeKeys(t *testing.T) {
	f := newFixture(t, nil)

	f.press("+")
	f.press("+")
	assert.InDelta(t, 0.6, f.volume.Volume(), 1e-9)

	for range 30 {
		f.press("-")
	}
	assert.InDelta(t, 0, f.volume.Volume(), 1e-9)

	saves := f.state.Saves()
	require.NotEmpty(t, saves)
	assert.InDelta(t, 0, saves[len(saves)-1].Volume, 1e-9)
}

func TestMove_SavesSelection(t *testing.T) {
	f := newFixture(t, nil)

	f.press("down")
	f.press("k") // back to the top
	f.press("k") // no movement, no save

	saves := f.state.Saves()
	require.Len(t, saves, 2)
	assert.Equal(t, 1, saves[0].StationIndex)
	kcsm, _ := catalog.Default().At(1)
	assert.Equal(t, kcsm.URI, saves[0].StationURI)
	assert.Equal(t, 0, saves[1].StationIndex)
}

func TestQuit(t *testing.T) {
	f := newFixture(t, nil)

	cmd := f.press("q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestHelp_QClosesInsteadOfQuitting(t *testing.T) {
	f := newFixture(t, nil)
	f.press("?")
	require.Equal(t, overlayHelp, f.model.overlay)
	assert.Contains(t, testutil.Plain(f.model.View()), "Help")

	cmd := f.press("q")
	msgs := drain(cmd, time.Second)
	require.Len(t, msgs, 1)
	f.update(msgs[0])
	assert.Equal(t, overlayNone, f.model.overlay)

	f.press("?")
	cmd = f.press("ctrl+c")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestHistory(t *testing.T) {
	st := state.NewMock()
	require.NoError(t, st.RecordPlay(state.Play{
		StationName: "KCSM",
		StationURI:  "http://ice5.securenetsystems.net/KCSM",
		Title:       "Bill Evans - Peace Piece",
		StartedAt:   time.Date(2026, 3, 1, 20, 15, 0, 0, time.Local),
	}))
	f := newFixture(t, st)

	msgs := drain(f.press("h"), time.Second)
	require.Len(t, msgs, 1)
	f.update(msgs[0])

	require.Equal(t, overlayHistory, f.model.overlay)
	view := testutil.Plain(f.model.View())
	assert.Contains(t, view, "Recently played")
	assert.Contains(t, view, "Mar 01 20:15")
	assert.Contains(t, view, "Bill Evans - Peace Piece")

	f.press("h")
	assert.Equal(t, overlayNone, f.model.overlay)
}

func TestStderrLineReplacesHints(t *testing.T) {
	f := newFixture(t, nil)
	f.update(StderrMsg{Line: "ALSA lib pcm.c: underrun occurred"})

	assert.Contains(t, testutil.Plain(f.model.View()), "! ALSA lib pcm.c: underrun occurred")
}

func TestToggleFailureIsReported(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Close())

	f.press("enter")

	select {
	case got := <-f.failures.C():
		assert.Equal(t, errmsg.OpPlaybackStart, got.Op)
		assert.Equal(t, session.ErrClosed.Error(), got.Message)
	case <-time.After(time.Second):
		t.Fatal("no failure reported")
	}
}

func TestToggleOp(t *testing.T) {
	tests := []struct {
		state session.State
		want  errmsg.Op
	}{
		{session.Stopped, errmsg.OpPlaybackStart},
		{session.Opening, errmsg.OpPlaybackStop},
		{session.Playing, errmsg.OpPlaybackStop},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, toggleOp(tt.state))
		})
	}
}

func TestNew_ReportsStateLoadFailure(t *testing.T) {
	f := newFixture(t, state.NewMock().WithLoadError(errors.New("database disk image is malformed")))

	select {
	case got := <-f.failures.C():
		assert.Equal(t, errmsg.OpStateLoad, got.Op)
		assert.Equal(t, "database disk image is malformed", got.Message)
	case <-time.After(time.Second):
		t.Fatal("no failure reported")
	}
	assert.Equal(t, 0, f.model.stations.Selected())
}

func TestHistory_LoadFailureIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.state.WithLoadError(errors.New("no such table: play_history"))

	msgs := drain(f.press("h"), time.Second)
	require.Len(t, msgs, 1)
	f.update(msgs[0])

	assert.Equal(t, overlayNone, f.model.overlay)
	select {
	case got := <-f.failures.C():
		assert.Equal(t, errmsg.OpStateLoad, got.Op)
	case <-time.After(time.Second):
		t.Fatal("no failure reported")
	}
}

func TestView_TooNarrow(t *testing.T) {
	f := newFixture(t, nil)
	f.update(tea.WindowSizeMsg{Width: 10, Height: 30})

	assert.Empty(t, f.model.View())
}
