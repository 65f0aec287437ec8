package stream

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-faad2"
)

const (
	adtsHeaderLen    = 7
	adtsCRCHeaderLen = 9

	// aacFrameSamples is the per-channel output of one AAC-LC frame.
	// SBR doubles it.
	aacFrameSamples = 1024

	// maxADTSResync bounds the bytes skipped looking for a frame header.
	maxADTSResync = 64 * 1024

	// maxBadAACFrames ends the stream after this many undecodable frames
	// in a row.
	maxBadAACFrames = 16
)

var (
	errADTSSync           = errors.New("aac: no ADTS frame header found")
	errAACConfigChanged   = errors.New("aac: stream configuration changed")
	errAACEmptyFirstFrame = errors.New("aac: first frame decoded to no samples")
	errAACTooManyBad      = errors.New("aac: too many undecodable frames")
)

var adtsSampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000,
	22050, 16000, 12000, 11025, 8000, 7350,
}

// adtsHeader is the fixed part of an ADTS frame header.
type adtsHeader struct {
	objectType int // MPEG-4 audio object type (profile + 1)
	rateIndex  int
	channels   int
	headerLen  int
	frameLen   int // header included
}

// parseADTSHeader decodes hdr, which holds at least adtsHeaderLen bytes.
//
//	syncword[12] id[1] layer[2] protection_absent[1] profile[2] rate[4]
//	private[1] channels[3] orig[1] home[1] copyright[2] frame_length[13]
//	fullness[11] raw_blocks[2]
func parseADTSHeader(hdr []byte) (adtsHeader, bool) {
	if hdr[0] != 0xFF || hdr[1]&0xF6 != 0xF0 {
		return adtsHeader{}, false
	}
	h := adtsHeader{
		objectType: int(hdr[2]>>6) + 1,
		rateIndex:  int(hdr[2]>>2) & 0x0F,
		channels:   int(hdr[2]&0x01)<<2 | int(hdr[3]>>6),
		headerLen:  adtsHeaderLen,
		frameLen:   int(hdr[3]&0x03)<<11 | int(hdr[4])<<3 | int(hdr[5]>>5),
	}
	if hdr[1]&0x01 == 0 {
		h.headerLen = adtsCRCHeaderLen
	}
	// Channel configuration 0 needs an in-band PCE, which is not handled.
	if h.rateIndex >= len(adtsSampleRates) || h.channels == 0 || h.frameLen <= h.headerLen {
		return adtsHeader{}, false
	}
	return h, true
}

func (h adtsHeader) sampleRate() int { return adtsSampleRates[h.rateIndex] }

// audioSpecificConfig builds the two-byte decoder configuration:
// object_type[5] rate_index[4] channels[4] zero[3].
func (h adtsHeader) audioSpecificConfig() []byte {
	return []byte{
		byte(h.objectType<<3 | h.rateIndex>>1),
		byte((h.rateIndex&0x01)<<7 | h.channels<<3),
	}
}

func (h adtsHeader) sameConfig(o adtsHeader) bool {
	return h.objectType == o.objectType && h.rateIndex == o.rateIndex && h.channels == o.channels
}

type adtsFrame struct {
	header  adtsHeader
	payload []byte
}

// adtsFrames splits a live ADTS byte stream into frames. A stream joined
// mid-frame, or bytes between frames, are skipped up to the next header.
type adtsFrames struct {
	r *bufio.Reader
}

func newADTSFrames(r io.Reader) *adtsFrames {
	return &adtsFrames{r: bufio.NewReader(r)}
}

func (f *adtsFrames) next() (adtsFrame, error) {
	for skipped := 0; ; skipped++ {
		if skipped > maxADTSResync {
			return adtsFrame{}, errADTSSync
		}
		hdr, err := f.r.Peek(adtsHeaderLen)
		if err != nil {
			return adtsFrame{}, err
		}
		h, ok := parseADTSHeader(hdr)
		if !ok {
			_, _ = f.r.Discard(1)
			continue
		}
		frame := make([]byte, h.frameLen)
		if _, err := io.ReadFull(f.r, frame); err != nil {
			return adtsFrame{}, noEOF(err)
		}
		return adtsFrame{header: h, payload: frame[h.headerLen:]}, nil
	}
}

// aacFrameDecoder decodes raw AAC frames to interleaved 16-bit PCM.
type aacFrameDecoder interface {
	Init(config []byte) error
	Decode(frame []byte) ([]int16, error)
	Close()
}

// faadDecoder runs libfaad2 through go-faad2.
type faadDecoder struct {
	d *faad2.Decoder
}

func newFaadDecoder() (aacFrameDecoder, error) {
	d, err := faad2.NewDecoder(context.Background())
	if err != nil {
		return nil, err
	}
	return &faadDecoder{d: d}, nil
}

func (f *faadDecoder) Init(config []byte) error {
	return f.d.Init(context.Background(), config)
}

func (f *faadDecoder) Decode(frame []byte) ([]int16, error) {
	return f.d.Decode(context.Background(), frame)
}

func (f *faadDecoder) Close() {
	f.d.Close(context.Background())
}

// aacDecoder plays ADTS AAC streams (AAC-LC and HE-AAC).
type aacDecoder struct {
	frames *adtsFrames
	closer io.Closer
	dec    aacFrameDecoder
	header adtsHeader
	inCh   int // channels in decoder output
	rate   int
	pcm    []int16
	pos    int
	bad    int
	err    error
}

func decodeAAC(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error) {
	d, format, err := openAAC(rc, newFaadDecoder)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return d, format, nil
}

func openAAC(rc io.ReadCloser, newDecoder func() (aacFrameDecoder, error)) (*aacDecoder, beep.Format, error) {
	d := &aacDecoder{frames: newADTSFrames(rc), closer: rc}
	first, err := d.frames.next()
	if err != nil {
		return nil, beep.Format{}, noEOF(err)
	}
	dec, err := newDecoder()
	if err != nil {
		return nil, beep.Format{}, err
	}
	if err := dec.Init(first.header.audioSpecificConfig()); err != nil {
		dec.Close()
		return nil, beep.Format{}, err
	}
	pcm, err := dec.Decode(first.payload)
	if err == nil && len(pcm) == 0 {
		err = errAACEmptyFirstFrame
	}
	if err != nil {
		dec.Close()
		return nil, beep.Format{}, err
	}

	d.dec = dec
	d.header = first.header
	d.inCh, d.rate = outputLayout(first.header, len(pcm))
	d.pcm = pcm

	format := beep.Format{
		SampleRate:  beep.SampleRate(d.rate),
		NumChannels: 2,
		Precision:   2,
	}
	return d, format, nil
}

// outputLayout derives the decoder's output channels and rate from the size
// of a decoded frame. SBR doubles the samples per channel and the rate;
// parametric stereo turns a mono header into stereo output.
func outputLayout(h adtsHeader, samples int) (channels, rate int) {
	channels, rate = h.channels, h.sampleRate()
	perChannel := samples / channels
	if channels == 1 && perChannel == 4*aacFrameSamples {
		channels, perChannel = 2, 2*aacFrameSamples
	}
	if perChannel == 2*aacFrameSamples {
		rate *= 2
	}
	return channels, rate
}

func (d *aacDecoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	for n < len(samples) {
		if d.pos < len(d.pcm) {
			n += d.fill(samples[n:])
			continue
		}
		if err := d.decodeNext(); err != nil {
			if !errors.Is(err, io.EOF) {
				d.err = err
			}
			return n, n > 0
		}
	}
	return n, true
}

// fill copies buffered frames out, keeping the first two channels and
// doubling mono.
func (d *aacDecoder) fill(samples [][2]float64) int {
	n := 0
	for n < len(samples) && d.pos+d.inCh <= len(d.pcm) {
		left := float64(d.pcm[d.pos]) / 32768.0
		right := left
		if d.inCh > 1 {
			right = float64(d.pcm[d.pos+1]) / 32768.0
		}
		samples[n] = [2]float64{left, right}
		d.pos += d.inCh
		n++
	}
	if n == 0 {
		// Trailing partial frame.
		d.pos = len(d.pcm)
	}
	return n
}

func (d *aacDecoder) decodeNext() error {
	frame, err := d.frames.next()
	if err != nil {
		return err
	}
	if !frame.header.sameConfig(d.header) {
		return errAACConfigChanged
	}
	pcm, err := d.dec.Decode(frame.payload)
	if err != nil {
		d.bad++
		if d.bad >= maxBadAACFrames {
			return errAACTooManyBad
		}
		d.pcm, d.pos = nil, 0
		return nil
	}
	d.bad = 0
	d.pcm, d.pos = pcm, 0
	return nil
}

func (d *aacDecoder) Err() error { return d.err }

func (d *aacDecoder) Close() error {
	d.dec.Close()
	return d.closer.Close()
}
