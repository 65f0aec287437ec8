package stream

import (
	"fmt"

	"github.com/llehouerou/airwaves/internal/engine"
)

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream returned status %d: %s", e.StatusCode, e.Status)
}

// ErrorCode maps the status into the HTTP code range.
func (e *StatusError) ErrorCode() uint32 {
	return engine.CodeHTTPBase + uint32(e.StatusCode) //nolint:gosec // status codes are 3 digits
}
