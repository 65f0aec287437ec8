// Package icons holds the glyph sets used by the station list and status line.
package icons

// Style represents the icon style to use.
type Style string

const (
	StyleNerd    Style = "nerd"
	StyleUnicode Style = "unicode"
	StyleNone    Style = "none"
)

// Icons holds the icon characters for the current style.
type Icons struct {
	Station string
	Play    string
	Stop    string
	Playing string
	Title   string
	Error   string
	Volume  string
}

var (
	nerdIcons = Icons{
		Station: "󰐹 ", // nf-md-radio_tower
		Play:    " ", // nf-fa-play
		Stop:    " ", // nf-fa-stop
		Playing: "󰝚 ", // nf-md-music_note
		Title:   " ", // nf-fa-music
		Error:   " ", // nf-fa-warning
		Volume:  "󰕾 ", // nf-md-volume_high
	}

	unicodeIcons = Icons{
		Station: "📻 ",
		Play:    "▶ ",
		Stop:    "■ ",
		Playing: "♪ ",
		Title:   "🎵 ",
		Error:   "⚠ ",
		Volume:  "🔊 ",
	}

	noneIcons = Icons{
		Station: "",
		Play:    "",
		Stop:    "",
		Playing: "* ",
		Title:   "",
		Error:   "! ",
		Volume:  "vol ",
	}

	// current holds the active icon set
	current = noneIcons
)

// Init initializes the icons based on the style.
// Call this once at startup with the config value.
func Init(style string) {
	switch Style(style) {
	case StyleNerd:
		current = nerdIcons
	case StyleUnicode:
		current = unicodeIcons
	default:
		current = noneIcons
	}
}

// FormatStation formats a station name for the list. The active station is
// marked even in the "none" style.
func FormatStation(name string, active bool) string {
	if active {
		return current.Playing + name
	}
	if current == noneIcons {
		return "  " + name
	}
	return current.Station + name
}

// Action returns the label of the action control: "play" when stopped and
// "stop" otherwise, with the matching glyph.
func Action(label string) string {
	if label == "play" {
		return current.Play + label
	}
	return current.Stop + label
}

// Title returns the stream title prefix.
func Title() string {
	return current.Title
}

// Error returns the failure prefix.
func Error() string {
	return current.Error
}

// Volume returns the volume prefix.
func Volume() string {
	return current.Volume
}
