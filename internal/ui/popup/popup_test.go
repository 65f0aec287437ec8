package popup

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialog_RenderContainsParts(t *testing.T) {
	d := New("Recently played", "KCSM  Take Five", "esc close")
	out := ansi.Strip(d.Render(60, 20))

	assert.Contains(t, out, "Recently played")
	assert.Contains(t, out, "KCSM  Take Five")
	assert.Contains(t, out, "esc close")
}

func TestDialog_TruncatesToTerminal(t *testing.T) {
	d := New("", strings.Repeat("x", 200), "")
	out := ansi.Strip(d.Render(40, 10))

	for line := range strings.SplitSeq(out, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 40)
	}
	assert.Contains(t, out, "…")
}

func TestDialog_Centered(t *testing.T) {
	out := New("T", "body", "").Render(40, 21)
	lines := strings.Split(out, "\n")

	// Box is title, blank, body plus border: 5 lines tall.
	require.Greater(t, len(lines), 8)
	assert.Empty(t, strings.TrimSpace(lines[0]))
	assert.True(t, strings.HasPrefix(ansi.Strip(lines[8]), " "))
}

func TestCompose_OverlaysNonBlankCells(t *testing.T) {
	base := "aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc"
	overlay := "\n   XY\n"

	got := Compose(base, overlay, 10, 3)

	assert.Equal(t, "aaaaaaaaaa\nbbbXYbbbbb\ncccccccccc", got)
}
