package tui

import tea "github.com/charmbracelet/bubbletea"

// Reporter forwards updater pipeline states to a running program. It
// satisfies updater.Reporter.
type Reporter struct {
	send func(tea.Msg)
}

func NewReporter(send func(tea.Msg)) *Reporter {
	return &Reporter{send: send}
}

func (r *Reporter) Report(kind, state, detail string) {
	r.send(StateMsg{Kind: kind, State: state, Detail: detail})
}

// PlainReporter prints each state change as a line. It is used when stdout
// is not a terminal.
type PlainReporter struct {
	Printf func(format string, args ...any)
}

func (r PlainReporter) Report(kind, state, detail string) {
	if detail == "" {
		r.Printf("%-10s %s\n", kind, state)
		return
	}
	r.Printf("%-10s %-18s %s\n", kind, state, detail)
}
