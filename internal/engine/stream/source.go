package stream

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep/v2"

	"github.com/llehouerou/airwaves/internal/engine"
)

// source is a connected, decodable stream.
type source struct {
	uri      string
	codec    string
	streamer beep.StreamCloser
	format   beep.Format
	body     io.Closer
	meta     *icyReader
	counter  *countingReader
	cancel   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func (s *source) URI() string { return s.uri }

// Close aborts the request and releases the decoder.
func (s *source) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.streamer.Close()
		_ = s.body.Close()
	})
	return s.closeErr
}

// StreamTitle returns the last in-band title, if the server sends any.
func (s *source) StreamTitle() string {
	if s.meta == nil {
		return ""
	}
	return s.meta.Title()
}

func (s *source) Stats() engine.Stats {
	return engine.Stats{
		Format:        s.codec,
		SampleRate:    int(s.format.SampleRate),
		BytesReceived: s.counter.Count(),
	}
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) Count() int64 {
	return c.n.Load()
}

var (
	_ engine.OpenedSource  = (*source)(nil)
	_ engine.TitleReporter = (*source)(nil)
	_ engine.StatsReporter = (*source)(nil)
)
