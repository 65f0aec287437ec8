// Package app is the terminal shell around the playback session.
package app

import (
	"time"

	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
	"github.com/llehouerou/airwaves/internal/state"
)

// StateChangedMsg carries a session state change.
type StateChangedMsg session.StateChange

// SessionClosedMsg is sent once the controller has been closed.
type SessionClosedMsg struct{}

// FailureMsg carries a reported failure to display.
type FailureMsg report.Failure

// StderrMsg is a line written to stderr by a native library (ALSA, decoders).
type StderrMsg struct {
	Line string
}

// TickMsg refreshes the stream title and statistics.
type TickMsg time.Time

// HistoryMsg carries recently played stations.
type HistoryMsg struct {
	Plays []state.Play
	Err   error
}

// playRecordedMsg reports the outcome of writing a play to history.
type playRecordedMsg struct {
	Err error
}
