//go:build linux

// Package mpris exposes the session on the D-Bus MPRIS interface so media
// keys and desktop widgets can control it.
package mpris

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/airwaves/internal/catalog"
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/guard"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
)

// errPanicked is returned to the D-Bus caller when a method panicked.
var errPanicked = errors.New("internal error")

// Volume is the output level control, 0.0 to 1.0.
type Volume interface {
	SetVolume(level float64)
	Volume() float64
}

// Adapter connects the session controller to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
	player *playerAdapter
	done   chan struct{}
}

// New starts serving ctrl on the session bus. Play on a stopped session
// starts the station last started, beginning with initial. Failures of
// D-Bus initiated actions go to rep.
func New(ctrl *session.Controller, cat *catalog.Catalog, vol Volume, initial int, rep report.Reporter) (*Adapter, error) {
	p := newPlayerAdapter(ctrl, cat, vol, initial, rep)
	a := &Adapter{
		server: server.NewServer("airwaves", &rootAdapter{}, p),
		player: p,
		done:   make(chan struct{}),
	}

	go p.follow(ctrl.Subscribe(), a.done)
	go func() {
		_ = a.server.Listen()
	}()
	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	close(a.done)
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error                { return nil }
func (r *rootAdapter) Quit() error                 { return nil }
func (r *rootAdapter) CanQuit() (bool, error)      { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }
func (r *rootAdapter) Identity() (string, error)   { return "Airwaves", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter. Next and
// Previous move through the catalog.
type playerAdapter struct {
	ctrl *session.Controller
	cat  *catalog.Catalog
	vol  Volume
	rep  report.Reporter
	last atomic.Int64 // station most recently started
}

func newPlayerAdapter(ctrl *session.Controller, cat *catalog.Catalog, vol Volume, initial int, rep report.Reporter) *playerAdapter {
	if rep == nil {
		rep = report.Discard
	}
	p := &playerAdapter{ctrl: ctrl, cat: cat, vol: vol, rep: rep}
	p.last.Store(int64(cat.Clamp(initial)))
	return p
}

// run calls fn behind the boundary guard. Its error, or errPanicked, is
// also returned to the D-Bus caller.
func (p *playerAdapter) run(op errmsg.Op, fn func() error) (err error) {
	if guard.Run(p.rep, op, func() error {
		err = fn()
		return err
	}) {
		return nil
	}
	if err == nil {
		err = errPanicked
	}
	return err
}

// follow records the station of every open until done or the session closes.
func (p *playerAdapter) follow(sub *session.Subscription, done <-chan struct{}) {
	for {
		select {
		case e := <-sub.StateChanged:
			if e.Current == session.Opening {
				if idx := p.ctrl.Snapshot().Index; idx >= 0 {
					p.last.Store(int64(idx))
				}
			}
		case <-sub.Done:
			return
		case <-done:
			return
		}
	}
}

func (p *playerAdapter) Play() error {
	return p.run(errmsg.OpPlaybackStart, func() error {
		if p.ctrl.State() != session.Stopped {
			return nil
		}
		return p.ctrl.Start(int(p.last.Load()))
	})
}

// Pause stops: a live stream cannot resume where it paused.
func (p *playerAdapter) Pause() error {
	return p.Stop()
}

func (p *playerAdapter) PlayPause() error {
	op := errmsg.OpPlaybackStart
	if p.ctrl.State() != session.Stopped {
		op = errmsg.OpPlaybackStop
	}
	return p.run(op, func() error {
		return p.ctrl.Toggle(int(p.last.Load()))
	})
}

func (p *playerAdapter) Stop() error {
	return p.run(errmsg.OpPlaybackStop, func() error {
		p.ctrl.Stop()
		return nil
	})
}

func (p *playerAdapter) Next() error {
	return p.run(errmsg.OpPlaybackStart, func() error { return p.step(1) })
}

func (p *playerAdapter) Previous() error {
	return p.run(errmsg.OpPlaybackStart, func() error { return p.step(-1) })
}

// step switches to the neighbouring station, wrapping around the catalog.
func (p *playerAdapter) step(delta int) error {
	n := p.cat.Len()
	if n == 0 {
		return nil
	}
	next := ((int(p.last.Load())+delta)%n + n) % n
	p.last.Store(int64(next))
	p.ctrl.Stop()
	return p.ctrl.Start(next)
}

func (p *playerAdapter) Seek(_ types.Microseconds) error { return nil }

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error { return nil }

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.ctrl.State() {
	case session.Playing:
		return types.PlaybackStatusPlaying, nil
	case session.Opening, session.Stopped:
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error)        { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error       { return nil }
func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.ctrl.Snapshot()
	if snap.Index < 0 {
		return types.Metadata{}, nil
	}
	title := snap.Title
	if title == "" {
		title = snap.Source.Name
	}
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(snap.Source.URI)),
		Title:   title,
		Album:   snap.Source.Name,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.vol.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	return p.run(errmsg.OpDialogCallback, func() error {
		p.vol.SetVolume(max(0, min(1, level)))
		return nil
	})
}

func (p *playerAdapter) Position() (int64, error) { return 0, nil }

func (p *playerAdapter) CanGoNext() (bool, error)     { return p.cat.Len() > 1, nil }
func (p *playerAdapter) CanGoPrevious() (bool, error) { return p.cat.Len() > 1, nil }
func (p *playerAdapter) CanPlay() (bool, error)       { return p.cat.Len() > 0, nil }
func (p *playerAdapter) CanPause() (bool, error)      { return true, nil }
func (p *playerAdapter) CanSeek() (bool, error)       { return false, nil }
func (p *playerAdapter) CanControl() (bool, error)    { return true, nil }

func formatTrackID(uri string) string {
	h := fnv.New64a()
	h.Write([]byte(uri))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
