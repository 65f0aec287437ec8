// internal/state/mock.go
package state

import "sync"

// Mock is a test double for Manager.
type Mock struct {
	mu      sync.Mutex
	ui      *UIState
	saves   []UIState
	plays   []Play
	closed  bool
	loadErr error
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

// WithUI sets the state returned by GetUI.
func (m *Mock) WithUI(s UIState) *Mock {
	m.ui = &s
	return m
}

// WithLoadError makes GetUI and RecentPlays fail with err.
func (m *Mock) WithLoadError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
	return m
}

func (m *Mock) GetUI() (*UIState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.ui, nil
}

func (m *Mock) SaveUI(s UIState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, s)
	m.ui = &s
}

func (m *Mock) RecordPlay(p Play) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays = append(m.plays, p)
	return nil
}

func (m *Mock) RecentPlays(limit int) ([]Play, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]Play, 0, limit)
	for i := len(m.plays) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.plays[i])
	}
	return out, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Saves returns every state passed to SaveUI.
func (m *Mock) Saves() []UIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]UIState, len(m.saves))
	copy(out, m.saves)
	return out
}

// Plays returns every recorded play in order.
func (m *Mock) Plays() []Play {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Play, len(m.plays))
	copy(out, m.plays)
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
