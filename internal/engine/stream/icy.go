package stream

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// icyReader strips SHOUTcast/Icecast metadata blocks from an audio stream.
// Every metaint audio bytes the server inserts one length byte (in units of
// 16 bytes) followed by that many bytes of metadata.
type icyReader struct {
	r         io.Reader
	metaint   int
	remaining int
	block     []byte

	mu    sync.Mutex
	title string
}

func newICYReader(r io.Reader, metaint int) *icyReader {
	return &icyReader{
		r:         r,
		metaint:   metaint,
		remaining: metaint,
		block:     make([]byte, 255*16),
	}
}

func (ir *icyReader) Read(p []byte) (int, error) {
	if ir.remaining == 0 {
		if err := ir.readMetadata(); err != nil {
			return 0, err
		}
		ir.remaining = ir.metaint
	}
	if len(p) > ir.remaining {
		p = p[:ir.remaining]
	}
	n, err := ir.r.Read(p)
	ir.remaining -= n
	return n, err
}

func (ir *icyReader) readMetadata() error {
	var size [1]byte
	if _, err := io.ReadFull(ir.r, size[:]); err != nil {
		return err
	}
	n := int(size[0]) * 16
	if n == 0 {
		return nil
	}
	if _, err := io.ReadFull(ir.r, ir.block[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("icy metadata: %w", err)
	}
	if title, ok := parseStreamTitle(string(ir.block[:n])); ok {
		ir.mu.Lock()
		ir.title = title
		ir.mu.Unlock()
	}
	return nil
}

// Title returns the last StreamTitle seen.
func (ir *icyReader) Title() string {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	return ir.title
}

// parseStreamTitle extracts StreamTitle from a metadata block such as
// "StreamTitle='Artist - Song';" padded with NULs.
func parseStreamTitle(meta string) (string, bool) {
	meta = strings.TrimRight(meta, "\x00")
	const key = "StreamTitle='"
	start := strings.Index(meta, key)
	if start < 0 {
		return "", false
	}
	rest := meta[start+len(key):]
	if end := strings.Index(rest, "';"); end >= 0 {
		rest = rest[:end]
	} else {
		rest = strings.TrimSuffix(rest, "'")
	}
	return strings.TrimSpace(rest), true
}
