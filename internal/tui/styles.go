package tui

import "charm.land/lipgloss/v2"

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Reverse(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)
