// Package engine defines the media engine contract used by the playback
// session: asynchronous opening of a stream URI and a player that renders
// an opened source.
package engine

import "errors"

// ErrUnsupportedFormat is returned when a stream's codec cannot be decoded.
var ErrUnsupportedFormat = errors.New("unsupported stream format")

// Engine opens network sources and creates players for them.
type Engine interface {
	// OpenAsync starts opening uri and returns immediately.
	OpenAsync(uri string) OpenHandle
	// NewPlayer returns an unbound player.
	NewPlayer() Player
}

// OpenHandle is an in-flight asynchronous open.
type OpenHandle interface {
	// Cancel requests cancellation. Idempotent and best-effort: a completion
	// may still be delivered afterwards.
	Cancel()
	// OnCompletion registers the completion callback. It is invoked exactly
	// once, possibly on another goroutine.
	OnCompletion(fn func(Result))
}

// OpenedSource is a successfully opened stream, ready to be bound to a player.
type OpenedSource interface {
	URI() string
	// Close releases the source. Safe to call more than once.
	Close() error
}

// Player renders an opened source.
type Player interface {
	Bind(src OpenedSource) error
	Play()
	Pause()
	// Close stops rendering and releases the bound source.
	Close() error
}

// Result is the outcome of an open: exactly one of Source and Err is set.
type Result struct {
	Source OpenedSource
	Err    error
}

// Success returns a successful result.
func Success(src OpenedSource) Result {
	return Result{Source: src}
}

// Failure returns a failed result.
func Failure(err error) Result {
	return Result{Err: err}
}

// OK reports whether the open succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Source != nil
}

// Stats describes the stream a player is rendering.
type Stats struct {
	Format        string
	SampleRate    int
	BytesReceived int64
	Underruns     int64 // buffer ran dry and silence was played
}

// TitleReporter is implemented by players that expose in-band stream titles.
type TitleReporter interface {
	StreamTitle() string
}

// StatsReporter is implemented by players that expose stream statistics.
type StatsReporter interface {
	Stats() Stats
}
