// Package session implements the playback session controller: one
// asynchronous open at a time, handed to a player when it completes.
package session

import (
	"errors"
	"sync"
	"weak"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/airwaves/internal/catalog"
	"github.com/llehouerou/airwaves/internal/engine"
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/guard"
	"github.com/llehouerou/airwaves/internal/report"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session closed")

// errNoSource is reported when an engine completes without error or source.
var errNoSource = errors.New("open completed without a source")

// operation is the single in-flight open. Identity is the pointer; id only
// correlates log lines.
type operation struct {
	id     uuid.UUID
	index  int
	source catalog.Source
	handle engine.OpenHandle
}

// Snapshot is a consistent view of the session for rendering.
type Snapshot struct {
	State  State
	Index  int // catalog index of the pending or playing source, -1 if stopped
	Source catalog.Source
	Title  string // in-band stream title, if the player reports one
	Stats  engine.Stats
}

// Controller owns the session state. All methods are safe for concurrent use;
// completions arrive on engine goroutines.
type Controller struct {
	engine  engine.Engine
	catalog *catalog.Catalog
	rep     report.Reporter
	log     zerolog.Logger

	mu       sync.Mutex
	state    State
	inFlight *operation
	current  *operation // source of the pending or playing stream
	player   engine.Player
	closed   bool

	subsMu     sync.Mutex
	subs       []*Subscription
	subsClosed bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New creates a stopped controller. rep receives every failure.
func New(eng engine.Engine, cat *catalog.Catalog, rep report.Reporter, opts ...Option) *Controller {
	if rep == nil {
		rep = report.Discard
	}
	c := &Controller{
		engine:  eng,
		catalog: cat,
		rep:     rep,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the source at index. It returns immediately; the stream starts
// playing when the open completes. Start is ignored unless the session is
// Stopped.
func (c *Controller) Start(index int) error {
	src, err := c.catalog.At(index)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Stopped {
		state := c.state
		c.mu.Unlock()
		c.log.Debug().Stringer("state", state).Int("index", index).Msg("start ignored")
		return nil
	}

	op := &operation{id: uuid.New(), index: index, source: src}
	op.handle = c.engine.OpenAsync(src.URI)
	c.inFlight = op
	c.current = op
	change := c.setStateLocked(Opening)
	c.mu.Unlock()

	c.log.Info().Stringer("op", op.id).Str("source", src.Name).Str("uri", src.URI).Msg("opening source")
	c.publish(change)

	// Registered outside the lock: an engine may deliver synchronously.
	op.handle.OnCompletion(completer(weak.Make(c), op, c.rep))
	return nil
}

// Stop cancels a pending open or stops the playing stream.
// Stop on a stopped session does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	handle, p := c.detachLocked()
	if handle == nil && p == nil {
		c.mu.Unlock()
		return
	}
	change := c.setStateLocked(Stopped)
	c.mu.Unlock()

	_ = c.release(handle, p)
	c.publish(change)
}

// Toggle is the action control: Start(index) when stopped, Stop otherwise.
func (c *Controller) Toggle(index int) error {
	if c.State() == Stopped {
		return c.Start(index)
	}
	c.Stop()
	return nil
}

// Close tears the session down. A pending open is canceled before anything
// else is released. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handle, p := c.detachLocked()
	change := c.setStateLocked(Stopped)
	c.mu.Unlock()

	err := c.release(handle, p)
	c.publish(change)

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsClosed = true
	c.subsMu.Unlock()

	c.log.Debug().Msg("session closed")
	return err
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the state together with the active source and stream info.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{State: c.state, Index: -1}
	if c.current != nil {
		s.Index = c.current.index
		s.Source = c.current.source
	}
	if tr, ok := c.player.(engine.TitleReporter); ok {
		s.Title = tr.StreamTitle()
	}
	if sr, ok := c.player.(engine.StatsReporter); ok {
		s.Stats = sr.Stats()
	}
	return s
}

// Subscribe creates a new event subscription. After Close the returned
// subscription is already done.
func (c *Controller) Subscribe() *Subscription {
	sub := newSubscription()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subsClosed {
		sub.close()
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

// completer builds the engine callback for op. It holds the controller only
// weakly: a collected controller turns every completion into a release.
func completer(ref weak.Pointer[Controller], op *operation, rep report.Reporter) func(engine.Result) {
	return func(res engine.Result) {
		defer guard.Recover(rep, errmsg.OpOpenSource)

		c := ref.Value()
		if c == nil {
			closeSource(res.Source)
			return
		}
		c.complete(op, res)
	}
}

// effects are applied after the lock is released.
type effects struct {
	change  *StateChange
	failure *report.Failure
	stale   engine.OpenedSource
}

func (c *Controller) complete(op *operation, res engine.Result) {
	fx := c.applyCompletion(op, res)

	if fx.stale != nil {
		c.log.Debug().Stringer("op", op.id).Msg("discarding stale completion")
		closeSource(fx.stale)
	}
	c.publish(fx.change)
	if fx.failure != nil {
		c.fail(*fx.failure)
	} else if fx.change != nil {
		c.log.Info().Stringer("op", op.id).Str("source", op.source.Name).Msg("playing")
	}
}

// applyCompletion runs the transition for a completion under the lock.
func (c *Controller) applyCompletion(op *operation, res engine.Result) (fx effects) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight != op || c.state != Opening {
		fx.stale = res.Source
		return fx
	}
	c.inFlight = nil

	if res.Err != nil || res.Source == nil {
		closeSource(res.Source)
		err := res.Err
		if err == nil {
			err = errNoSource
		}
		c.current = nil
		fx.change = c.setStateLocked(Stopped)
		fx.failure = &report.Failure{Op: errmsg.OpOpenSource, Message: errmsg.Describe(err)}
		return fx
	}

	var p engine.Player
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		c.discardLocked(p, res.Source)
		fx.change = c.setStateLocked(Stopped)
		fx.failure = &report.Failure{Op: errmsg.OpPlaybackStart, Message: errmsg.DescribePanic(r)}
	}()

	p = c.engine.NewPlayer()
	if err := p.Bind(res.Source); err != nil {
		c.discardLocked(p, res.Source)
		fx.change = c.setStateLocked(Stopped)
		fx.failure = &report.Failure{Op: errmsg.OpPlaybackStart, Message: errmsg.Describe(err)}
		return fx
	}
	p.Play()
	c.player = p
	fx.change = c.setStateLocked(Playing)
	return fx
}

// discardLocked drops a player that never reached Playing.
func (c *Controller) discardLocked(p engine.Player, src engine.OpenedSource) {
	if p != nil {
		_ = p.Close()
	}
	closeSource(src)
	c.player = nil
	c.current = nil
}

// detachLocked takes ownership of the pending handle or the player.
func (c *Controller) detachLocked() (engine.OpenHandle, engine.Player) {
	var handle engine.OpenHandle
	if c.inFlight != nil {
		handle = c.inFlight.handle
		c.inFlight = nil
	}
	p := c.player
	c.player = nil
	c.current = nil
	return handle, p
}

// release cancels handle first, then stops and releases p.
func (c *Controller) release(handle engine.OpenHandle, p engine.Player) error {
	if handle != nil {
		handle.Cancel()
	}
	if p == nil {
		return nil
	}
	p.Pause()
	if err := p.Close(); err != nil {
		c.log.Warn().Err(err).Msg("closing player")
		return err
	}
	return nil
}

func (c *Controller) setStateLocked(s State) *StateChange {
	if c.state == s {
		return nil
	}
	change := &StateChange{Previous: c.state, Current: s}
	c.state = s
	return change
}

func (c *Controller) publish(change *StateChange) {
	if change == nil {
		return
	}
	c.log.Debug().Stringer("from", change.Previous).Stringer("to", change.Current).Msg("state")

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, sub := range c.subs {
		sub.sendState(*change)
	}
}

// fail reports f once, to the reporter and to subscribers.
func (c *Controller) fail(f report.Failure) {
	if !guard.Report(c.rep, f.Op, f.Message) {
		c.log.Warn().Str("op", string(f.Op)).Str("message", f.Message).Msg("failure reporter panicked")
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, sub := range c.subs {
		sub.sendFailure(f)
	}
}

func closeSource(src engine.OpenedSource) {
	if src != nil {
		_ = src.Close()
	}
}
