// Package layout provides pure functions for UI dimension calculations.
package layout

import "github.com/llehouerou/airwaves/internal/ui"

// HintHeight is the key hint line at the bottom of the screen.
const HintHeight = 1

// ContentOpts contains the heights stacked around the station list.
type ContentOpts struct {
	HeaderHeight int
	StatusHeight int
}

// ListHeight calculates the rows available to the station list: the window
// minus header, status bar, hint line and the list's own border. At least 1.
func ListHeight(windowHeight int, opts ContentOpts) int {
	height := windowHeight
	height -= opts.HeaderHeight
	height -= opts.StatusHeight
	height -= HintHeight
	height -= ui.BorderHeight
	return max(height, 1)
}

// PanelWidth is the lipgloss width of a bordered panel spanning the window.
func PanelWidth(windowWidth int) int {
	return max(windowWidth-2, 0)
}

// ListWidth is the row width inside the list panel, which adds one column of
// padding on each side.
func ListWidth(windowWidth int) int {
	return max(PanelWidth(windowWidth)-2, 0)
}

// TooSmall reports whether nothing useful fits in the window.
func TooSmall(width, height int) bool {
	return width < ui.MinWidth || height <= 0
}
