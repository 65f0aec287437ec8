// internal/session/state.go
package session

// State is the playback session state.
//
//	┌──────────┐   Start    ┌──────────┐  completion ok  ┌──────────┐
//	│  Stopped │ ─────────▶ │  Opening │ ──────────────▶ │  Playing │
//	└──────────┘            └──────────┘                 └──────────┘
//	     ▲                     │    │                         │
//	     │   Stop (cancel)     │    │ completion error        │ Stop
//	     └─────────────────────┴────┴─────────────────────────┘
//
// Opening covers the window between issuing an open and receiving its
// completion. Externally the session looks binary (Label), but only Opening
// tells a pending open apart from no open at all.
type State int

const (
	Stopped State = iota
	Opening
	Playing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Opening:
		return "Opening"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// IsActive returns true if an open is pending or a stream is playing.
func (s State) IsActive() bool {
	return s == Opening || s == Playing
}

// Label is the two-valued projection shown on the action control:
// "stop" while active, "play" otherwise.
func (s State) Label() string {
	if s.IsActive() {
		return "stop"
	}
	return "play"
}
