// internal/state/interface.go
package state

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	GetUI() (*UIState, error)
	SaveUI(state UIState)
	RecordPlay(play Play) error
	RecentPlays(limit int) ([]Play, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
