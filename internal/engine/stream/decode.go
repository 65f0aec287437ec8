package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

const (
	codecMP3 = "MP3"
	codecOgg = "Ogg"
	codecAAC = "AAC"
)

// decodeFunc reads the stream header from rc and returns a streamer
// producing its samples. The streamer owns rc.
type decodeFunc func(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error)

// defaultDecoders lists the codecs that can be decoded.
func defaultDecoders() map[string]decodeFunc {
	return map[string]decodeFunc{
		codecMP3: decodeMP3,
		codecOgg: decodeOgg,
		codecAAC: decodeAAC,
	}
}

// detectCodec picks a codec from the Content-Type, falling back to the URI
// extension (including "type=.mp3" style query hints). Unknown streams are
// assumed to be MP3, which is what most Icecast servers send.
func detectCodec(contentType, uri string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg":
			return codecMP3
		case "application/ogg", "audio/ogg", "audio/vorbis", "audio/x-ogg", "audio/opus":
			return codecOgg
		case "audio/aac", "audio/aacp", "audio/x-aac", "audio/mp4", "audio/x-m4a":
			return codecAAC
		}
	}

	u, err := url.Parse(uri)
	if err != nil {
		return codecMP3
	}
	hints := []string{path.Ext(u.Path)}
	for _, v := range u.Query() {
		hints = append(hints, v...)
	}
	for _, h := range hints {
		switch strings.ToLower(strings.TrimPrefix(h, ".")) {
		case "ogg", "oga", "opus":
			return codecOgg
		case "aac", "aacp", "m4a":
			return codecAAC
		case "mp3":
			return codecMP3
		}
	}
	return codecMP3
}

// mp3Decoder adapts go-mp3's 16-bit stereo PCM output to beep.
type mp3Decoder struct {
	decoder *mp3.Decoder
	closer  io.Closer
	err     error
	buf     []byte
}

func decodeMP3(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}
	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   2,
	}
	return &mp3Decoder{decoder: decoder, closer: rc, buf: make([]byte, 8192)}, format, nil
}

func (d *mp3Decoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	need := len(samples) * 4
	if len(d.buf) < need {
		d.buf = make([]byte, need)
	}
	read, err := io.ReadFull(d.decoder, d.buf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}
	for n = 0; n < read/4; n++ {
		off := n * 4
		left := int16(binary.LittleEndian.Uint16(d.buf[off:]))    //nolint:gosec // audio samples
		right := int16(binary.LittleEndian.Uint16(d.buf[off+2:])) //nolint:gosec // audio samples
		samples[n][0] = float64(left) / 32768.0
		samples[n][1] = float64(right) / 32768.0
	}
	return n, n > 0
}

func (d *mp3Decoder) Err() error { return d.err }

func (d *mp3Decoder) Close() error { return d.closer.Close() }
