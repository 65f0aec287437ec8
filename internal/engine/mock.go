// internal/engine/mock.go
package engine

import (
	"errors"
	"sync"
)

// Mock is a scriptable test double for Engine. Opens never complete on their
// own: tests resolve them through the returned MockHandle.
type Mock struct {
	mu        sync.Mutex
	handles   []*MockHandle
	players   []*MockPlayer
	events    []string
	bindErr   error
	bindPanic any
}

// NewMock creates a new mock engine.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) OpenAsync(uri string) OpenHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &MockHandle{URI: uri, engine: m}
	m.handles = append(m.handles, h)
	m.events = append(m.events, "open "+uri)
	return h
}

func (m *Mock) NewPlayer() Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &MockPlayer{engine: m, bindErr: m.bindErr, bindPanic: m.bindPanic}
	m.players = append(m.players, p)
	return p
}

func (m *Mock) record(event string) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
}

// Test helpers

// Handles returns every handle issued so far.
func (m *Mock) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockHandle, len(m.handles))
	copy(out, m.handles)
	return out
}

// Last returns the most recent handle, or nil.
func (m *Mock) Last() *MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// Players returns every player created so far.
func (m *Mock) Players() []*MockPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockPlayer, len(m.players))
	copy(out, m.players)
	return out
}

// Events returns the ordered log of engine calls
// ("open <uri>", "cancel <uri>", "bind <uri>", "play", "pause", "close player", "close <uri>").
func (m *Mock) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}

// SetBindError makes players created afterwards fail Bind with err.
func (m *Mock) SetBindError(err error) {
	m.mu.Lock()
	m.bindErr = err
	m.mu.Unlock()
}

// SetBindPanic makes players created afterwards panic with v in Bind.
func (m *Mock) SetBindPanic(v any) {
	m.mu.Lock()
	m.bindPanic = v
	m.mu.Unlock()
}

// MockHandle is the OpenHandle returned by Mock.
type MockHandle struct {
	Completion

	URI    string
	engine *Mock

	mu      sync.Mutex
	cancels int
}

func (h *MockHandle) Cancel() {
	h.mu.Lock()
	h.cancels++
	first := h.cancels == 1
	h.mu.Unlock()
	if first {
		h.engine.record("cancel " + h.URI)
	}
}

// Canceled reports whether Cancel was called.
func (h *MockHandle) Canceled() bool {
	return h.CancelCount() > 0
}

// CancelCount returns how many times Cancel was called.
func (h *MockHandle) CancelCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancels
}

// Succeed resolves the handle with a new source and returns it.
// Returns nil if the handle was already resolved.
func (h *MockHandle) Succeed() *MockSource {
	src := &MockSource{uri: h.URI, engine: h.engine}
	if !h.Resolve(Success(src)) {
		return nil
	}
	return src
}

// Fail resolves the handle with an OpenError carrying code.
func (h *MockHandle) Fail(code uint32) {
	h.Resolve(Failure(&OpenError{Code: code, URI: h.URI, Err: errors.New("unspecified error")}))
}

// MockSource is the OpenedSource produced by MockHandle.Succeed.
type MockSource struct {
	uri    string
	engine *Mock

	mu     sync.Mutex
	closed bool
}

func (s *MockSource) URI() string { return s.uri }

func (s *MockSource) Close() error {
	s.mu.Lock()
	first := !s.closed
	s.closed = true
	s.mu.Unlock()
	if first {
		s.engine.record("close " + s.uri)
	}
	return nil
}

// Closed reports whether the source was released.
func (s *MockSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockPlayer is the Player returned by Mock.
type MockPlayer struct {
	engine    *Mock
	bindErr   error
	bindPanic any

	mu      sync.Mutex
	bound   OpenedSource
	playing bool
	closed  bool
}

func (p *MockPlayer) Bind(src OpenedSource) error {
	if p.bindPanic != nil {
		panic(p.bindPanic)
	}
	if p.bindErr != nil {
		return p.bindErr
	}
	p.mu.Lock()
	p.bound = src
	p.mu.Unlock()
	p.engine.record("bind " + src.URI())
	return nil
}

func (p *MockPlayer) Play() {
	p.mu.Lock()
	p.playing = true
	p.mu.Unlock()
	p.engine.record("play")
}

func (p *MockPlayer) Pause() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	p.engine.record("pause")
}

func (p *MockPlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.playing = false
	src := p.bound
	p.mu.Unlock()

	p.engine.record("close player")
	if src != nil {
		return src.Close()
	}
	return nil
}

// Bound returns the bound source, or nil.
func (p *MockPlayer) Bound() OpenedSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound
}

// Playing reports whether Play was the last render call.
func (p *MockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Closed reports whether the player was released.
func (p *MockPlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Verify mocks implement the engine interfaces at compile time.
var (
	_ Engine       = (*Mock)(nil)
	_ OpenHandle   = (*MockHandle)(nil)
	_ OpenedSource = (*MockSource)(nil)
	_ Player       = (*MockPlayer)(nil)
)
