package tui

import (
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the user quits before work finished.
var ErrInterrupted = errors.New("interrupted")

// Run starts a program for model, runs work in the background with a
// Reporter bound to the program, and blocks until both have finished. The
// error returned by work wins over the program's own.
func Run(out io.Writer, model UpdateModel, work func(rep *Reporter) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out))

	workErr := make(chan error, 1)
	go func() {
		// Let the event loop draw its first frame.
		time.Sleep(50 * time.Millisecond)
		err := work(NewReporter(p.Send))
		if err != nil {
			p.Send(ErrorMsg{Err: err})
		} else {
			p.Send(WorkDoneMsg{})
		}
		workErr <- err
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	m, _ := final.(UpdateModel)
	if m.Interrupted() {
		return ErrInterrupted
	}
	if werr := <-workErr; werr != nil {
		return werr
	}
	return m.Err()
}
