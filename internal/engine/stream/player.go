package stream

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/rs/zerolog"

	"github.com/llehouerou/airwaves/internal/engine"
)

const (
	chunkSize    = 1024
	bufferChunks = 32
)

var (
	errPlayerClosed = errors.New("player closed")
	errAlreadyBound = errors.New("player already bound")
)

// Player renders one source. Decoding runs on its own goroutine so the
// speaker callback never waits on the network.
type Player struct {
	engine *Engine
	out    Output
	log    zerolog.Logger

	mu      sync.Mutex
	src     *source
	buf     *buffer
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	level   float64
	started bool
	closed  bool
}

// Bind prepares src for playback, paused.
func (p *Player) Bind(opened engine.OpenedSource) error {
	src, ok := opened.(*source)
	if !ok {
		return fmt.Errorf("stream: cannot bind %T", opened)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPlayerClosed
	}
	if p.src != nil {
		return errAlreadyBound
	}
	if err := p.out.Init(src.format.SampleRate); err != nil {
		return fmt.Errorf("init audio output: %w", err)
	}

	var in beep.Streamer = src.streamer
	if rate := p.out.SampleRate(); src.format.SampleRate != rate {
		in = beep.Resample(4, src.format.SampleRate, rate, in)
	}
	p.src = src
	p.buf = newBuffer(in)
	go p.buf.run()

	p.ctrl = &beep.Ctrl{Streamer: p.buf, Paused: true}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Volume:   levelToVolume(p.level),
		Silent:   p.level <= 0,
	}
	p.log.Debug().
		Str("format", src.codec).
		Int("rate", int(src.format.SampleRate)).
		Msg("player bound")
	return nil
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil || p.closed {
		return
	}
	p.out.Lock()
	p.ctrl.Paused = false
	p.out.Unlock()
	if !p.started {
		p.out.Play(p.volume)
		p.started = true
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil || p.closed {
		return
	}
	p.out.Lock()
	p.ctrl.Paused = true
	p.out.Unlock()
}

// Close stops rendering and releases the bound source.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	src, buf, ctrl := p.src, p.buf, p.ctrl
	p.mu.Unlock()

	if p.engine != nil {
		p.engine.forget(p)
	}
	if src == nil {
		return nil
	}
	// Abort the request first so a decoder blocked on the network returns.
	src.cancel()
	p.out.Lock()
	ctrl.Streamer = nil
	p.out.Unlock()
	buf.halt()
	return src.Close()
}

// SetVolume sets the level (0.0 to 1.0).
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = clampLevel(level)
	if p.volume == nil {
		return
	}
	p.out.Lock()
	p.volume.Volume = levelToVolume(p.level)
	p.volume.Silent = p.level <= 0
	p.out.Unlock()
}

func (p *Player) StreamTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return ""
	}
	return p.src.StreamTitle()
}

func (p *Player) Stats() engine.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return engine.Stats{}
	}
	st := p.src.Stats()
	st.Underruns = p.buf.underruns.Load()
	return st
}

func clampLevel(level float64) float64 {
	return max(0, min(1, level))
}

// levelToVolume maps a 0.0-1.0 level onto beep's base-2 volume:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// buffer decouples decoding from the speaker. An empty buffer plays silence.
type buffer struct {
	in     beep.Streamer
	chunks chan [][2]float64
	stop   chan struct{}
	done   chan struct{}

	stopped   atomic.Bool
	underruns atomic.Int64

	// Owned by the speaker goroutine.
	cur   [][2]float64
	ended bool
}

func newBuffer(in beep.Streamer) *buffer {
	return &buffer{
		in:     in,
		chunks: make(chan [][2]float64, bufferChunks),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (b *buffer) run() {
	defer close(b.done)
	defer close(b.chunks)
	for {
		chunk := make([][2]float64, chunkSize)
		n, ok := b.in.Stream(chunk)
		if n > 0 {
			select {
			case b.chunks <- chunk[:n]:
			case <-b.stop:
				return
			}
		}
		if !ok {
			return
		}
		select {
		case <-b.stop:
			return
		default:
		}
	}
}

func (b *buffer) Stream(samples [][2]float64) (int, bool) {
	if b.stopped.Load() || b.ended {
		return 0, false
	}
	n := 0
	for n < len(samples) {
		if len(b.cur) == 0 {
			select {
			case c, ok := <-b.chunks:
				if !ok {
					b.ended = true
					return n, n > 0
				}
				b.cur = c
			default:
				b.underruns.Add(1)
				clear(samples[n:])
				return len(samples), true
			}
		}
		k := copy(samples[n:], b.cur)
		b.cur = b.cur[k:]
		n += k
	}
	return n, true
}

func (b *buffer) Err() error { return nil }

// halt stops the decoding goroutine and waits for it.
func (b *buffer) halt() {
	if b.stopped.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.done
}

var (
	_ engine.Player        = (*Player)(nil)
	_ engine.TitleReporter = (*Player)(nil)
	_ engine.StatsReporter = (*Player)(nil)
)
