package stream

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/airwaves/internal/engine"
)

// fakeStreamer turns every 4 bytes of the body into one sample.
type fakeStreamer struct {
	rc io.ReadCloser

	mu     sync.Mutex
	closed bool
}

func (f *fakeStreamer) Stream(samples [][2]float64) (int, bool) {
	buf := make([]byte, 4)
	for i := range samples {
		if _, err := io.ReadFull(f.rc, buf); err != nil {
			return i, i > 0
		}
		samples[i][0] = float64(buf[0]) / 255
		samples[i][1] = float64(buf[2]) / 255
	}
	return len(samples), true
}

func (f *fakeStreamer) Err() error { return nil }

func (f *fakeStreamer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.rc.Close()
}

func (f *fakeStreamer) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeDecoder reads a fixed header before returning a streamer.
type fakeDecoder struct {
	header int

	mu        sync.Mutex
	streamers []*fakeStreamer
}

func (d *fakeDecoder) decode(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error) {
	if _, err := io.CopyN(io.Discard, rc, int64(d.header)); err != nil {
		return nil, beep.Format{}, err
	}
	s := &fakeStreamer{rc: rc}
	d.mu.Lock()
	d.streamers = append(d.streamers, s)
	d.mu.Unlock()
	return s, beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}, nil
}

func (d *fakeDecoder) last() *fakeStreamer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streamers[len(d.streamers)-1]
}

type fakeOutput struct {
	rate   beep.SampleRate
	device sync.Mutex

	mu      sync.Mutex
	inits   int
	initErr error
	played  []beep.Streamer
}

func (o *fakeOutput) Init(rate beep.SampleRate) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initErr != nil {
		return o.initErr
	}
	if o.inits == 0 {
		o.rate = rate
	}
	o.inits++
	return nil
}

func (o *fakeOutput) SampleRate() beep.SampleRate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rate
}

func (o *fakeOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.played = append(o.played, s)
	o.mu.Unlock()
}

func (o *fakeOutput) Lock()   { o.device.Lock() }
func (o *fakeOutput) Unlock() { o.device.Unlock() }

// pull reads one buffer from the streamer under the device lock.
func (o *fakeOutput) pull(s beep.Streamer, n int) ([][2]float64, bool) {
	o.Lock()
	defer o.Unlock()
	buf := make([][2]float64, n)
	got, ok := s.Stream(buf)
	return buf[:got], ok
}

func newTestEngine(t *testing.T) (*Engine, *fakeDecoder, *fakeOutput) {
	t.Helper()
	e := New(Config{Volume: 1, Logger: zerolog.Nop()})
	dec := &fakeDecoder{header: 8}
	out := &fakeOutput{}
	e.decoders = map[string]decodeFunc{codecMP3: dec.decode, codecOgg: dec.decode}
	e.output = out
	return e, dec, out
}

func await(t *testing.T, h engine.OpenHandle) engine.Result {
	t.Helper()
	ch := make(chan engine.Result, 1)
	h.OnCompletion(func(r engine.Result) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("open did not complete")
		return engine.Result{}
	}
}

func audio(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestOpen_Success(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio(64, 0x40))
	}))
	defer srv.Close()
	e, _, _ := newTestEngine(t)

	res := await(t, e.OpenAsync(srv.URL))

	require.True(t, res.OK(), "open failed: %v", res.Err)
	defer res.Source.Close()
	assert.Equal(t, srv.URL, res.Source.URI())
	h := <-headers
	assert.Equal(t, DefaultUserAgent, h.Get("User-Agent"))
	assert.Equal(t, "1", h.Get("Icy-MetaData"))

	st := res.Source.(engine.StatsReporter).Stats()
	assert.Equal(t, "MP3", st.Format)
	assert.Equal(t, 44100, st.SampleRate)
	assert.GreaterOrEqual(t, st.BytesReceived, int64(8))
}

func TestOpen_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	e, _, _ := newTestEngine(t)

	res := await(t, e.OpenAsync(srv.URL))

	require.Error(t, res.Err)
	assert.Nil(t, res.Source)
	var oe *engine.OpenError
	require.ErrorAs(t, res.Err, &oe)
	assert.Equal(t, uint32(0x80190194), oe.Code)
	var se *StatusError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, res.Err.Error(), "0x80190194")
}

func TestOpen_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write(audio(64, 0x40))
	}))
	defer srv.Close()
	e, _, _ := newTestEngine(t)

	res := await(t, e.OpenAsync(srv.URL))

	require.True(t, res.OK(), "open failed: %v", res.Err)
	_ = res.Source.Close()
}

func TestDefaultDecoders_CoverDetectedCodecs(t *testing.T) {
	decoders := defaultDecoders()
	for _, codec := range []string{codecMP3, codecOgg, codecAAC} {
		assert.Contains(t, decoders, codec)
	}
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/aacp")
		_, _ = w.Write(audio(64, 0))
	}))
	defer srv.Close()
	e, _, _ := newTestEngine(t)

	res := await(t, e.OpenAsync(srv.URL))

	assert.ErrorIs(t, res.Err, engine.ErrUnsupportedFormat)
	assert.Equal(t, engine.CodeUnsupported, engine.CodeOf(res.Err))
}

func TestOpen_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	e, _, _ := newTestEngine(t)

	res := await(t, e.OpenAsync(url))

	require.Error(t, res.Err)
	assert.Equal(t, engine.CodeFailed, engine.CodeOf(res.Err))
}

func TestOpen_CancelAborts(t *testing.T) {
	reached := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(reached)
		<-r.Context().Done()
	}))
	defer srv.Close()
	e, _, _ := newTestEngine(t)

	h := e.OpenAsync(srv.URL)
	<-reached
	h.Cancel()
	h.Cancel()
	res := await(t, h)

	require.Error(t, res.Err)
	assert.Nil(t, res.Source)
	assert.Equal(t, engine.CodeAborted, engine.CodeOf(res.Err))
}

func TestOpen_CancelAfterDeliveryKeepsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio(64, 0x10))
	}))
	defer srv.Close()
	e, dec, _ := newTestEngine(t)

	h := e.OpenAsync(srv.URL)
	res := await(t, h)
	require.True(t, res.OK())
	h.Cancel()

	assert.False(t, dec.last().Closed())
	require.NoError(t, res.Source.Close())
	assert.True(t, dec.last().Closed())
	assert.NoError(t, res.Source.Close(), "Close is idempotent")
}

func TestOpen_ICYTitle(t *testing.T) {
	meta := []byte("StreamTitle='Artist - Song';")
	padded := make([]byte, 32)
	copy(padded, meta)

	var body bytes.Buffer
	body.Write(audio(16, 0x20))
	body.WriteByte(2)
	body.Write(padded)
	body.Write(audio(16, 0x30))
	body.WriteByte(0)
	body.Write(audio(16, 0x40))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-metaint", "16")
		_, _ = w.Write(body.Bytes())
	}))
	defer srv.Close()
	e, dec, _ := newTestEngine(t)
	dec.header = 24

	res := await(t, e.OpenAsync(srv.URL))

	require.True(t, res.OK(), "open failed: %v", res.Err)
	defer res.Source.Close()
	assert.Equal(t, "Artist - Song", res.Source.(engine.TitleReporter).StreamTitle())
}

func TestNewPlayer_UsesEngineVolume(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetVolume(2)
	assert.InDelta(t, 1.0, e.Volume(), 1e-9)

	e.SetVolume(0.5)
	p := e.NewPlayer().(*Player)

	assert.InDelta(t, 0.5, p.level, 1e-9)
	require.NoError(t, p.Close())
	e.mu.Lock()
	assert.Empty(t, e.players)
	e.mu.Unlock()
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 503, Status: "503 Service Unavailable"}

	assert.Equal(t, "stream returned status 503: 503 Service Unavailable", err.Error())
	assert.Equal(t, uint32(0x801901f7), err.ErrorCode())
	assert.Equal(t, uint32(0x801901f7), engine.CodeOf(engine.NewOpenError("u", err)))
}

func TestDetectCodec(t *testing.T) {
	tests := []struct {
		contentType string
		uri         string
		want        string
	}{
		{"audio/mpeg", "http://h/stream", codecMP3},
		{"audio/mpeg; charset=binary", "http://h/s.ogg", codecMP3},
		{"application/ogg", "http://h/stream", codecOgg},
		{"audio/aacp", "http://h/stream", codecAAC},
		{"", "http://stream.kalx.berkeley.edu:8000/kalx-320.aac", codecAAC},
		{"", "https://kzscfms1-geckohost.radioca.st/kzschigh?type=.mp3", codecMP3},
		{"application/octet-stream", "http://h/radio.OGG", codecOgg},
		{"audio/opus", "http://h/stream", codecOgg},
		{"", "http://h/live.opus", codecOgg},
		{"", "http://s3.viastreaming.net:8525", codecMP3},
		{"text/html", "::not a url", codecMP3},
	}

	for _, tt := range tests {
		t.Run(tt.contentType+" "+tt.uri, func(t *testing.T) {
			if got := detectCodec(tt.contentType, tt.uri); got != tt.want {
				t.Errorf("detectCodec(%q, %q) = %q, want %q", tt.contentType, tt.uri, got, tt.want)
			}
		})
	}
}

func TestICYReader(t *testing.T) {
	var raw bytes.Buffer
	raw.WriteString("abcd")
	raw.WriteByte(1)
	raw.WriteString("StreamTitle='X';")
	raw.WriteString("efgh")
	raw.WriteByte(0)
	raw.WriteString("ij")

	r := newICYReader(&raw, 4)
	got, err := io.ReadAll(r)

	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", string(got))
	assert.Equal(t, "X", r.Title())
}

func TestICYReader_TruncatedMetadata(t *testing.T) {
	raw := bytes.NewReader([]byte{'a', 'b', 3, 'S', 't'})
	r := newICYReader(raw, 2)

	_, err := io.ReadAll(r)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseStreamTitle(t *testing.T) {
	tests := []struct {
		meta   string
		want   string
		wantOK bool
	}{
		{"StreamTitle='Artist - Song';StreamUrl='';", "Artist - Song", true},
		{"StreamTitle='No terminator'\x00\x00\x00", "No terminator", true},
		{"StreamTitle='';", "", true},
		{"StreamUrl='http://x';", "", false},
		{strings.Repeat("\x00", 16), "", false},
	}

	for _, tt := range tests {
		got, ok := parseStreamTitle(tt.meta)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseStreamTitle(%q) = %q, %v; want %q, %v", tt.meta, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestLevelToVolume(t *testing.T) {
	assert.InDelta(t, 0.0, levelToVolume(1), 1e-9)
	assert.InDelta(t, -1.0, levelToVolume(0.5), 1e-9)
	assert.InDelta(t, -2.0, levelToVolume(0.25), 1e-9)
	assert.InDelta(t, -10.0, levelToVolume(0), 1e-9)
	assert.InDelta(t, 0.0, levelToVolume(3), 1e-9)
}

func TestPlayer_BindRejectsForeignSource(t *testing.T) {
	e, _, _ := newTestEngine(t)
	p := e.NewPlayer()
	defer p.Close()

	err := p.Bind(&engine.MockSource{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot bind")
}

func TestPlayer_BindOutputInitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(audio(64, 1))
	}))
	defer srv.Close()
	e, _, out := newTestEngine(t)
	out.initErr = errors.New("no device")
	res := await(t, e.OpenAsync(srv.URL))
	require.True(t, res.OK())
	defer res.Source.Close()

	err := e.NewPlayer().Bind(res.Source)

	assert.ErrorContains(t, err, "no device")
}

func TestPlayer_PlayPauseClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio(4096, 0xff))
	}))
	defer srv.Close()
	e, dec, out := newTestEngine(t)
	res := await(t, e.OpenAsync(srv.URL))
	require.True(t, res.OK(), "open failed: %v", res.Err)

	p := e.NewPlayer().(*Player)
	require.NoError(t, p.Bind(res.Source))
	assert.ErrorIs(t, p.Bind(res.Source), errAlreadyBound)
	assert.Empty(t, out.played, "bound player is paused")

	p.Play()
	p.Play()
	require.Len(t, out.played, 1)
	played := out.played[0]

	assert.Eventually(t, func() bool {
		samples, ok := out.pull(played, 16)
		return ok && len(samples) > 0 && samples[0][0] > 0
	}, 2*time.Second, 5*time.Millisecond, "decoded audio reaches the output")

	p.Pause()
	samples, ok := out.pull(played, 16)
	assert.True(t, ok)
	assert.Equal(t, [2]float64{}, samples[0], "paused output is silent")

	st := p.Stats()
	assert.Equal(t, "MP3", st.Format)
	assert.Positive(t, st.BytesReceived)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, dec.last().Closed())
	_, ok = out.pull(played, 16)
	assert.False(t, ok, "closed player drops out of the mix")
	assert.ErrorIs(t, p.Bind(res.Source), errPlayerClosed)
}

func TestPlayer_SetVolume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(audio(256, 1))
	}))
	defer srv.Close()
	e, _, _ := newTestEngine(t)
	res := await(t, e.OpenAsync(srv.URL))
	require.True(t, res.OK())
	p := e.NewPlayer().(*Player)
	defer p.Close()
	require.NoError(t, p.Bind(res.Source))

	e.SetVolume(0.25)
	assert.InDelta(t, -2.0, p.volume.Volume, 1e-9)
	assert.False(t, p.volume.Silent)

	e.SetVolume(0)
	assert.True(t, p.volume.Silent)
}
