package tui

// StateMsg moves one row to a new pipeline state.
type StateMsg struct {
	Kind   string
	State  string
	Detail string
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
