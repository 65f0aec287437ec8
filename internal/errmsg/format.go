// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/llehouerou/airwaves/internal/engine"
)

// Op represents an operation that can fail. It doubles as the context label
// passed to failure reporters.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpOpenSource    Op = "open music source"
	OpPlaybackStart Op = "start playback"
	OpPlaybackStop  Op = "stop playback"

	// Boundary faults
	OpDialogCallback Op = "handle dialog callback"

	// Persistence
	OpStateLoad Op = "load player state"
	OpStateSave Op = "save player state"

	// Initialization
	OpInitialize Op = "initialize application"
	OpConfigLoad Op = "load configuration"
)

// Title returns the heading shown above a failure, e.g. "Failed to open music source".
func (op Op) Title() string {
	return "Failed to " + string(op)
}

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// Describe renders err as a single human-readable line. Engine errors show
// their code; anything without text becomes "unknown error".
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var openErr *engine.OpenError
	if errors.As(err, &openErr) {
		cause := "unspecified error"
		if openErr.Err != nil {
			cause = openErr.Err.Error()
		}
		return fmt.Sprintf("error 0x%08x: %s", openErr.Code, cause)
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "unknown error"
}

// DescribePanic renders a recovered panic value.
func DescribePanic(v any) string {
	switch p := v.(type) {
	case nil:
		return "unknown error"
	case error:
		return "panic: " + Describe(p)
	case string:
		return "panic: " + p
	default:
		return fmt.Sprintf("panic: %v", p)
	}
}
