// Package stream implements engine.Engine for HTTP radio streams: an
// asynchronous GET, ICY metadata demuxing, and decoding to the speaker.
package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/airwaves/internal/engine"
)

const (
	DefaultUserAgent      = "airwaves/1.0"
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 15 * time.Second
)

// Config configures the HTTP side of the engine.
type Config struct {
	UserAgent      string
	ConnectTimeout time.Duration // dial and TLS handshake
	ReadTimeout    time.Duration // until response headers arrive
	Volume         float64       // initial level, 0.0 to 1.0
	Logger         zerolog.Logger
}

// Engine opens HTTP audio streams. Streams are long-lived, so the client has
// no overall timeout.
type Engine struct {
	client    *http.Client
	userAgent string
	log       zerolog.Logger
	decoders  map[string]decodeFunc
	output    Output

	mu      sync.Mutex
	volume  float64
	players map[*Player]struct{}
}

// New creates an engine rendering to the system speaker.
func New(cfg Config) *Engine {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &Engine{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.ConnectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   cfg.ConnectTimeout,
				ResponseHeaderTimeout: cfg.ReadTimeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
		log:       cfg.Logger,
		decoders:  defaultDecoders(),
		output:    Speaker(),
		volume:    clampLevel(cfg.Volume),
		players:   make(map[*Player]struct{}),
	}
}

// OpenAsync starts the request on a new goroutine.
func (e *Engine) OpenAsync(uri string) engine.OpenHandle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &openHandle{uri: uri, cancel: cancel}
	go e.run(ctx, h)
	return h
}

func (e *Engine) run(ctx context.Context, h *openHandle) {
	start := time.Now()
	src, err := e.open(ctx, h.uri, h.cancel)
	if err == nil && !h.deliver() {
		_ = src.Close()
		err = context.Canceled
	}
	if err != nil {
		h.cancel()
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}
		e.log.Debug().Err(err).Str("uri", h.uri).Msg("open failed")
		h.Resolve(engine.Failure(engine.NewOpenError(h.uri, err)))
		return
	}
	e.log.Debug().
		Str("uri", h.uri).
		Str("format", src.codec).
		Dur("elapsed", time.Since(start)).
		Msg("stream opened")
	h.Resolve(engine.Success(src))
}

// open connects and decodes enough of the stream to know its format.
func (e *Engine) open(ctx context.Context, uri string, cancel context.CancelFunc) (*source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Icy-MetaData", "1")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	codec := detectCodec(resp.Header.Get("Content-Type"), uri)
	decode, ok := e.decoders[codec]
	if !ok {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedFormat, codec)
	}

	counter := &countingReader{r: resp.Body}
	var body io.Reader = counter
	var meta *icyReader
	if v := resp.Header.Get("icy-metaint"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			meta = newICYReader(counter, n)
			body = meta
		}
	}

	streamer, format, err := decode(readCloser{Reader: body, Closer: resp.Body})
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("decode %s: %w", codec, err)
	}

	return &source{
		uri:      uri,
		codec:    codec,
		streamer: streamer,
		format:   format,
		body:     resp.Body,
		meta:     meta,
		counter:  counter,
		cancel:   cancel,
	}, nil
}

// NewPlayer returns an unbound player on the engine's output.
func (e *Engine) NewPlayer() engine.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := &Player{engine: e, out: e.output, level: e.volume, log: e.log}
	e.players[p] = struct{}{}
	return p
}

// SetVolume sets the level for live and future players.
func (e *Engine) SetVolume(level float64) {
	e.mu.Lock()
	e.volume = clampLevel(level)
	players := make([]*Player, 0, len(e.players))
	for p := range e.players {
		players = append(players, p)
	}
	level = e.volume
	e.mu.Unlock()

	for _, p := range players {
		p.SetVolume(level)
	}
}

// Volume returns the current level.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Engine) forget(p *Player) {
	e.mu.Lock()
	delete(e.players, p)
	e.mu.Unlock()
}

// openHandle resolves once. A cancel that wins against delivery turns the
// result into an aborted open; a cancel after delivery does nothing.
type openHandle struct {
	engine.Completion

	uri    string
	cancel context.CancelFunc

	mu        sync.Mutex
	canceled  bool
	delivered bool
}

func (h *openHandle) Cancel() {
	h.mu.Lock()
	if h.delivered || h.canceled {
		h.mu.Unlock()
		return
	}
	h.canceled = true
	h.mu.Unlock()
	h.cancel()
}

// deliver claims the handle for a successful result.
func (h *openHandle) deliver() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.canceled {
		return false
	}
	h.delivered = true
	return true
}

type readCloser struct {
	io.Reader
	io.Closer
}

var (
	_ engine.Engine     = (*Engine)(nil)
	_ engine.OpenHandle = (*openHandle)(nil)
)
