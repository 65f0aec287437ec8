//go:build linux

package mpris

import (
	"sync"
	"testing"
	"time"

	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/airwaves/internal/catalog"
	"github.com/llehouerou/airwaves/internal/engine"
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
)

type fakeVolume struct{ level float64 }

func (v *fakeVolume) SetVolume(level float64) { v.level = level }
func (v *fakeVolume) Volume() float64         { return v.level }

func newTestAdapter(t *testing.T, initial int) (*playerAdapter, *session.Controller, *engine.Mock) {
	t.Helper()
	eng := engine.NewMock()
	cat := catalog.Default()
	ctrl := session.New(eng, cat, nil)
	t.Cleanup(func() { _ = ctrl.Close() })
	return newPlayerAdapter(ctrl, cat, &fakeVolume{level: 0.5}, initial, nil), ctrl, eng
}

func TestPlay_StartsLastStation(t *testing.T) {
	p, ctrl, eng := newTestAdapter(t, 2)

	require.NoError(t, p.Play())

	assert.Equal(t, session.Opening, ctrl.State())
	kzsc, _ := catalog.Default().At(2)
	assert.Equal(t, kzsc.URI, eng.Last().URI)

	require.NoError(t, p.Play(), "play while active is ignored")
	assert.Len(t, eng.Handles(), 1)
}

func TestPlayPauseAndStop(t *testing.T) {
	p, ctrl, eng := newTestAdapter(t, 0)

	require.NoError(t, p.PlayPause())
	eng.Last().Succeed()
	status, err := p.PlaybackStatus()
	require.NoError(t, err)
	assert.Equal(t, types.PlaybackStatusPlaying, status)

	require.NoError(t, p.Pause())
	assert.Equal(t, session.Stopped, ctrl.State())

	require.NoError(t, p.PlayPause())
	require.NoError(t, p.Stop())
	assert.True(t, eng.Last().Canceled())
}

func TestNextPrevious_Wrap(t *testing.T) {
	p, ctrl, eng := newTestAdapter(t, 3)

	require.NoError(t, p.Next())
	first, _ := catalog.Default().At(0)
	assert.Equal(t, first.URI, eng.Last().URI)
	assert.Equal(t, session.Opening, ctrl.State())

	require.NoError(t, p.Previous())
	last, _ := catalog.Default().At(3)
	assert.Equal(t, last.URI, eng.Last().URI)
	assert.True(t, eng.Handles()[0].Canceled(), "switching cancels the pending open")
}

func TestMetadata(t *testing.T) {
	p, _, eng := newTestAdapter(t, 1)

	meta, err := p.Metadata()
	require.NoError(t, err)
	assert.Empty(t, meta.Title, "no metadata while stopped")

	require.NoError(t, p.Play())
	eng.Last().Succeed()

	meta, err = p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "KCSM", meta.Title)
	assert.Equal(t, "KCSM", meta.Album)
	assert.Equal(t, formatTrackID("http://ice5.securenetsystems.net/KCSM"), string(meta.TrackId))
}

func TestVolume_Clamped(t *testing.T) {
	p, _, _ := newTestAdapter(t, 0)

	require.NoError(t, p.SetVolume(1.7))
	v, err := p.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestFollow_TracksStartedStation(t *testing.T) {
	p, ctrl, _ := newTestAdapter(t, 0)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go p.follow(ctrl.Subscribe(), done)

	require.NoError(t, ctrl.Start(3))

	assert.Eventually(t, func() bool { return p.last.Load() == 3 }, time.Second, time.Millisecond)
}

type recorder struct {
	mu  sync.Mutex
	got []report.Failure
}

func (r *recorder) Report(op errmsg.Op, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, report.Failure{Op: op, Message: message})
}

func (r *recorder) failures() []report.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report.Failure(nil), r.got...)
}

type explodingVolume struct{ fakeVolume }

func (v *explodingVolume) SetVolume(float64) { panic("mixer gone") }

func TestMethods_ReportFailures(t *testing.T) {
	ctrl := session.New(engine.NewMock(), catalog.Default(), nil)
	require.NoError(t, ctrl.Close())
	rec := &recorder{}
	p := newPlayerAdapter(ctrl, catalog.Default(), &fakeVolume{}, 0, rec)

	tests := []struct {
		name   string
		call   func() error
		wantOp errmsg.Op
	}{
		{"Play", p.Play, errmsg.OpPlaybackStart},
		{"PlayPause", p.PlayPause, errmsg.OpPlaybackStart},
		{"Next", p.Next, errmsg.OpPlaybackStart},
		{"Previous", p.Previous, errmsg.OpPlaybackStart},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()

			require.ErrorIs(t, err, session.ErrClosed)
			got := rec.failures()
			require.Len(t, got, i+1)
			assert.Equal(t, tt.wantOp, got[i].Op)
			assert.Equal(t, session.ErrClosed.Error(), got[i].Message)
		})
	}
}

func TestSetVolume_PanicIsContained(t *testing.T) {
	ctrl := session.New(engine.NewMock(), catalog.Default(), nil)
	t.Cleanup(func() { _ = ctrl.Close() })
	rec := &recorder{}
	p := newPlayerAdapter(ctrl, catalog.Default(), &explodingVolume{}, 0, rec)

	var err error
	assert.NotPanics(t, func() { err = p.SetVolume(0.3) })

	assert.ErrorIs(t, err, errPanicked)
	got := rec.failures()
	require.Len(t, got, 1)
	assert.Equal(t, errmsg.OpDialogCallback, got[0].Op)
	assert.Equal(t, "panic: mixer gone", got[0].Message)
}

func TestPlay_UnknownStationIsReported(t *testing.T) {
	ctrl := session.New(engine.NewMock(), catalog.Default(), nil)
	t.Cleanup(func() { _ = ctrl.Close() })
	rec := &recorder{}
	p := newPlayerAdapter(ctrl, catalog.Default(), &fakeVolume{}, 0, rec)
	p.last.Store(99)

	err := p.Play()

	require.Error(t, err)
	got := rec.failures()
	require.Len(t, got, 1)
	assert.Equal(t, errmsg.OpPlaybackStart, got[0].Op)
	assert.Equal(t, session.Stopped, ctrl.State())
}
