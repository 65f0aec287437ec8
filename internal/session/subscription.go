package session

import "github.com/llehouerou/airwaves/internal/report"

const eventBufferSize = 16

// StateChange is emitted when the session state changes.
type StateChange struct {
	Previous State
	Current  State
}

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StateChanged <-chan StateChange
	Failed       <-chan report.Failure
	Done         <-chan struct{}

	stateCh   chan StateChange
	failureCh chan report.Failure
	doneCh    chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:   make(chan StateChange, eventBufferSize),
		failureCh: make(chan report.Failure, eventBufferSize),
		doneCh:    make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.Failed = s.failureCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendState sends a state change event (non-blocking).
func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendFailure sends a failure event (non-blocking).
func (s *Subscription) sendFailure(f report.Failure) {
	select {
	case s.failureCh <- f:
	default:
	}
}
