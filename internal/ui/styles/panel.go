package styles

import "github.com/charmbracelet/lipgloss"

// Panel returns a rounded panel whose border reflects the session: accent
// while a stream is active, muted otherwise.
func Panel(active bool) lipgloss.Style {
	border := T().Border
	if active {
		border = T().BorderFocus
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border)
}
