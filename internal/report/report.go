// Package report delivers failures to whoever displays them.
package report

import (
	"github.com/rs/zerolog"

	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/notify"
)

// Reporter receives failures. Implementations must not block and must be
// safe for concurrent use: reports arrive from engine goroutines.
type Reporter interface {
	Report(op errmsg.Op, message string)
}

// Failure is a single reported failure.
type Failure struct {
	Op      errmsg.Op
	Message string
}

// Title returns the heading for the failure.
func (f Failure) Title() string {
	return f.Op.Title()
}

// Func adapts a function to Reporter.
type Func func(op errmsg.Op, message string)

func (f Func) Report(op errmsg.Op, message string) { f(op, message) }

// Discard drops every report.
var Discard Reporter = Func(func(errmsg.Op, string) {})

type multi []Reporter

// Multi fans reports out to every non-nil reporter in order.
func Multi(reporters ...Reporter) Reporter {
	m := make(multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) Report(op errmsg.Op, message string) {
	for _, r := range m {
		r.Report(op, message)
	}
}

// Log returns a reporter writing one error line per failure.
func Log(logger zerolog.Logger) Reporter {
	return Func(func(op errmsg.Op, message string) {
		logger.Error().Str("op", string(op)).Msg(message)
	})
}

// Notify returns a reporter that raises a critical desktop notification.
func Notify(n notify.Notifier, logger zerolog.Logger) Reporter {
	return Func(func(op errmsg.Op, message string) {
		_, err := n.Notify(notify.Notification{
			Title:    op.Title(),
			Body:     message,
			Icon:     "dialog-error",
			Timeout:  -1,
			Urgency:  notify.UrgencyCritical,
			Category: category(op),
		})
		if err != nil {
			logger.Warn().Err(err).Msg("desktop notification failed")
		}
	})
}

func category(op errmsg.Op) string {
	switch op {
	case errmsg.OpOpenSource, errmsg.OpPlaybackStart:
		return notify.CategoryNetworkError
	default:
		return ""
	}
}

const defaultChannelSize = 16

// Channel buffers failures for a single consumer such as the UI.
type Channel struct {
	ch chan Failure
}

// NewChannel creates a channel reporter holding up to size pending failures.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = defaultChannelSize
	}
	return &Channel{ch: make(chan Failure, size)}
}

// Report enqueues the failure, dropping it if the buffer is full.
func (c *Channel) Report(op errmsg.Op, message string) {
	select {
	case c.ch <- Failure{Op: op, Message: message}:
	default:
	}
}

// C returns the receive side.
func (c *Channel) C() <-chan Failure {
	return c.ch
}
