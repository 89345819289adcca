package tui

import (
	"github.com/charmbracelet/lipgloss"

	"filethings/internal/updater"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	stateStyles = map[string]lipgloss.Style{
		updater.StateDone:             okStyle,
		updater.StateUpToDate:         skippedStyle,
		updater.StateFetchingManifest: activeStyle,
		updater.StateComparing:        activeStyle,
		updater.StateFetchingArchive:  activeStyle,
		updater.StateExtracting:       activeStyle,
		updater.StateSwapping:         activeStyle,
		updater.StateFailed:           errorStyle,
		StatePending:                  lipgloss.NewStyle().Faint(true),

		// tool probe results
		"yes": okStyle,
		"no":  errorStyle,
	}
)

// StatePending marks a row nothing has been reported for yet.
const StatePending = "pending"

// StateStyle returns the lipgloss style for a pipeline state or probe result.
func StateStyle(state string) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// finished reports whether state ends a pipeline.
func finished(state string) bool {
	switch state {
	case updater.StateDone, updater.StateUpToDate, updater.StateFailed:
		return true
	}
	return false
}
