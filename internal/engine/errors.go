package engine

import (
	"context"
	"errors"
	"fmt"
)

// Error codes reported by OpenError. The values follow the HRESULT
// convention used by platform media stacks.
const (
	CodeFailed      uint32 = 0x80004005 // unspecified failure
	CodeAborted     uint32 = 0x80004004 // operation canceled
	CodeUnsupported uint32 = 0xC00D36C4 // unsupported byte stream type
	CodeHTTPBase    uint32 = 0x80190000 // HTTP status is added to this base
)

// OpenError is reported when an engine fails to open a URI.
type OpenError struct {
	Code uint32
	URI  string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("open %s: error 0x%08x", e.URI, e.Code)
	}
	return fmt.Sprintf("open %s: error 0x%08x: %v", e.URI, e.Code, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// ErrorCode returns e.Code.
func (e *OpenError) ErrorCode() uint32 {
	return e.Code
}

// NewOpenError wraps err, deriving a code from it when possible.
func NewOpenError(uri string, err error) *OpenError {
	return &OpenError{Code: CodeOf(err), URI: uri, Err: err}
}

// coder is implemented by errors that carry their own code.
type coder interface {
	ErrorCode() uint32
}

// CodeOf returns the most specific code for err.
func CodeOf(err error) uint32 {
	var c coder
	switch {
	case err == nil:
		return 0
	case errors.As(err, &c):
		return c.ErrorCode()
	case errors.Is(err, context.Canceled):
		return CodeAborted
	case errors.Is(err, ErrUnsupportedFormat):
		return CodeUnsupported
	default:
		return CodeFailed
	}
}
