package stream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/jfreymuth/vorbis"
	"github.com/jj11hh/opus"
)

const (
	opusSampleRate = 48000

	// maxPacketFrames bounds the frames one packet decodes to: 120ms of
	// Opus at 48kHz, or half of Vorbis' largest block.
	maxPacketFrames = 8192

	oggContinued = 0x01
	oggBOS       = 0x02
)

var (
	errOggCapture      = errors.New("ogg: invalid capture pattern")
	errOggVersion      = errors.New("ogg: unsupported version")
	errUnknownOggCodec = errors.New("ogg: unknown codec (not Opus or Vorbis)")
	errOpusHead        = errors.New("opus: invalid identification header")
	errVorbisHead      = errors.New("vorbis: invalid identification header")
	errVorbisNotReady  = errors.New("vorbis: headers incomplete")
	errPCMTooSmall     = errors.New("ogg: pcm buffer too small")
	errRateChanged     = errors.New("ogg: sample rate changed between chained streams")
)

// oggCodec decodes the packets of one logical Ogg stream.
type oggCodec interface {
	SampleRate() int
	Channels() int
	// PreSkip is the number of frames to drop after the headers.
	PreSkip() int
	// AddHeaderPacket feeds the header packets that follow the first one
	// and reports when the codec is ready to decode.
	AddHeaderPacket(packet []byte) (complete bool, err error)
	// Decode writes interleaved samples to pcm and returns frames decoded.
	Decode(packet []byte, pcm []float32) (int, error)
}

// detectOggCodec picks the codec from the first packet of a logical stream.
func detectOggCodec(first []byte) (oggCodec, error) {
	if len(first) >= 8 && string(first[:8]) == "OpusHead" {
		return newOpusCodec(first)
	}
	if len(first) >= 7 && first[0] == 0x01 && string(first[1:7]) == "vorbis" {
		return newVorbisCodec(first)
	}
	return nil, errUnknownOggCodec
}

type opusCodec struct {
	decoder  *opus.Decoder
	channels int
	preSkip  int
}

func newOpusCodec(head []byte) (*opusCodec, error) {
	// OpusHead: magic[8] version[1] channels[1] pre-skip[2] rate[4] gain[2] mapping[1]
	if len(head) < 19 || head[8] != 1 || head[9] == 0 {
		return nil, errOpusHead
	}
	channels := int(head[9])
	decoder, err := opus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return nil, err
	}
	return &opusCodec{
		decoder:  decoder,
		channels: channels,
		preSkip:  int(binary.LittleEndian.Uint16(head[10:12])),
	}, nil
}

// SampleRate is always 48kHz; the rate in OpusHead is informational.
func (c *opusCodec) SampleRate() int { return opusSampleRate }
func (c *opusCodec) Channels() int   { return c.channels }
func (c *opusCodec) PreSkip() int    { return c.preSkip }

// AddHeaderPacket consumes OpusTags, the only header after OpusHead.
func (c *opusCodec) AddHeaderPacket([]byte) (bool, error) { return true, nil }

func (c *opusCodec) Decode(packet []byte, pcm []float32) (int, error) {
	return c.decoder.DecodeFloat32(packet, pcm)
}

type vorbisCodec struct {
	decoder    *vorbis.Decoder
	channels   int
	sampleRate int
	headers    [][]byte
}

func newVorbisCodec(ident []byte) (*vorbisCodec, error) {
	// identification: type[1] "vorbis"[6] version[4] channels[1] rate[4]
	if len(ident) < 16 || binary.LittleEndian.Uint32(ident[7:11]) != 0 || ident[11] == 0 {
		return nil, errVorbisHead
	}
	return &vorbisCodec{
		channels:   int(ident[11]),
		sampleRate: int(binary.LittleEndian.Uint32(ident[12:16])),
		headers:    [][]byte{ident},
	}, nil
}

func (c *vorbisCodec) SampleRate() int { return c.sampleRate }
func (c *vorbisCodec) Channels() int   { return c.channels }
func (c *vorbisCodec) PreSkip() int    { return 0 }

// AddHeaderPacket collects the comment and setup headers, then builds the
// decoder from all three.
func (c *vorbisCodec) AddHeaderPacket(packet []byte) (bool, error) {
	if c.decoder != nil {
		return true, nil
	}
	c.headers = append(c.headers, packet)
	if len(c.headers) < 3 {
		return false, nil
	}
	decoder := &vorbis.Decoder{}
	for _, h := range c.headers {
		if err := decoder.ReadHeader(h); err != nil {
			return false, err
		}
	}
	c.decoder = decoder
	c.headers = nil
	return true, nil
}

func (c *vorbisCodec) Decode(packet []byte, pcm []float32) (int, error) {
	if c.decoder == nil {
		return 0, errVorbisNotReady
	}
	samples, err := c.decoder.Decode(packet)
	if err != nil {
		return 0, err
	}
	if len(samples) > len(pcm) {
		return 0, errPCMTooSmall
	}
	return copy(pcm, samples) / c.channels, nil
}

type oggPacket struct {
	data []byte
	bos  bool // first packet of a logical stream
}

// oggPackets reassembles packets from a live page sequence. Packets may span
// pages; a page that is not flagged as a continuation drops any partial one.
type oggPackets struct {
	r       *bufio.Reader
	partial []byte
	queue   []oggPacket
}

func newOggPackets(r io.Reader) *oggPackets {
	return &oggPackets{r: bufio.NewReader(r)}
}

func (p *oggPackets) next() (oggPacket, error) {
	for len(p.queue) == 0 {
		if err := p.readPage(); err != nil {
			return oggPacket{}, err
		}
	}
	pkt := p.queue[0]
	p.queue = p.queue[1:]
	return pkt, nil
}

func (p *oggPackets) readPage() error {
	// header: "OggS" version[1] type[1] granule[8] serial[4] seq[4] crc[4] segments[1]
	var hdr [27]byte
	if _, err := io.ReadFull(p.r, hdr[:]); err != nil {
		return err
	}
	if string(hdr[:4]) != "OggS" {
		return errOggCapture
	}
	if hdr[4] != 0 {
		return errOggVersion
	}
	headerType := hdr[5]

	lacing := make([]byte, hdr[26])
	if _, err := io.ReadFull(p.r, lacing); err != nil {
		return noEOF(err)
	}
	size := 0
	for _, l := range lacing {
		size += int(l)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(p.r, body); err != nil {
		return noEOF(err)
	}

	if headerType&oggContinued == 0 {
		p.partial = nil
	}
	bos := headerType&oggBOS != 0
	off := 0
	for _, l := range lacing {
		p.partial = append(p.partial, body[off:off+int(l)]...)
		off += int(l)
		if l < 255 {
			p.queue = append(p.queue, oggPacket{data: p.partial, bos: bos})
			p.partial = nil
			bos = false
		}
	}
	return nil
}

// noEOF turns a clean EOF inside a page into a truncation error.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// oggDecoder plays Ogg Opus and Ogg Vorbis streams. A chained stream (a new
// logical stream per track, as Icecast sends) re-detects the codec.
type oggDecoder struct {
	packets *oggPackets
	closer  io.Closer
	detect  func([]byte) (oggCodec, error)

	codec oggCodec
	rate  int
	pcm   []float32
	pos   int
	skip  int
	err   error
}

func decodeOgg(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error) {
	d := &oggDecoder{packets: newOggPackets(rc), closer: rc, detect: detectOggCodec}
	if err := d.open(); err != nil {
		return nil, beep.Format{}, err
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(d.rate),
		NumChannels: 2,
		Precision:   2,
	}
	return d, format, nil
}

func (d *oggDecoder) open() error {
	first, err := d.packets.next()
	if err != nil {
		return err
	}
	return d.start(first.data)
}

// start sets up the codec for a logical stream whose first packet is given,
// reading the rest of its headers.
func (d *oggDecoder) start(first []byte) error {
	codec, err := d.detect(first)
	if err != nil {
		return err
	}
	for done := false; !done; {
		pkt, err := d.packets.next()
		if err != nil {
			return noEOF(err)
		}
		if done, err = codec.AddHeaderPacket(pkt.data); err != nil {
			return err
		}
	}
	if d.rate != 0 && codec.SampleRate() != d.rate {
		return errRateChanged
	}
	d.rate = codec.SampleRate()
	d.codec = codec
	d.skip = codec.PreSkip()
	if need := maxPacketFrames * codec.Channels(); cap(d.pcm) < need {
		d.pcm = make([]float32, 0, need)
	}
	d.pcm = d.pcm[:0]
	d.pos = 0
	return nil
}

func (d *oggDecoder) Stream(samples [][2]float64) (n int, ok bool) {
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
func (d *oggDecoder) fill(samples [][2]float64) int {
	ch := d.codec.Channels()
	n := 0
	for n < len(samples) && d.pos < len(d.pcm) {
		left := float64(d.pcm[d.pos])
		right := left
		if ch > 1 {
			right = float64(d.pcm[d.pos+1])
		}
		samples[n] = [2]float64{left, right}
		d.pos += ch
		n++
	}
	return n
}

func (d *oggDecoder) decodeNext() error {
	pkt, err := d.packets.next()
	if err != nil {
		return err
	}
	if pkt.bos {
		return d.start(pkt.data)
	}
	frames, err := d.codec.Decode(pkt.data, d.pcm[:cap(d.pcm)])
	if err != nil {
		// Corrupt packet: drop it and keep going.
		d.pcm, d.pos = d.pcm[:0], 0
		return nil //nolint:nilerr // skipped
	}
	ch := d.codec.Channels()
	d.pcm, d.pos = d.pcm[:frames*ch], 0
	if d.skip > 0 {
		drop := min(d.skip, frames)
		d.skip -= drop
		d.pos = drop * ch
	}
	return nil
}

func (d *oggDecoder) Err() error { return d.err }

func (d *oggDecoder) Close() error { return d.closer.Close() }
