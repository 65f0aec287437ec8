//go:build windows

// Package stderr is a pass-through on Windows, whose audio backend does not
// write to fd 2.
package stderr

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Capture is inert on Windows.
type Capture struct {
	lines    chan string
	stopOnce sync.Once
}

// Start returns a capture whose Lines never delivers.
func Start(zerolog.Logger) (*Capture, error) {
	return &Capture{lines: make(chan string)}, nil
}

func (c *Capture) Lines() <-chan string {
	return c.lines
}

func (c *Capture) WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

// Stop closes Lines.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() { close(c.lines) })
}
