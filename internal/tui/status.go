package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusWriter keeps a single spinner line updated on w while a slow
// one-shot step runs, e.g. probing every registered tool.
type StatusWriter struct {
	w       io.Writer
	mu      sync.Mutex
	message string
	started time.Time
	done    chan struct{}
	once    sync.Once
}

// NewStatusWriter starts the spinner. Call Stop before writing anything
// else to w.
func NewStatusWriter(w io.Writer, message string) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		message: message,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Update replaces the message and restarts the elapsed timer.
func (sw *StatusWriter) Update(message string) {
	sw.mu.Lock()
	sw.message = message
	sw.started = time.Now()
	sw.mu.Unlock()
}

// Stop clears the line. It is safe to call more than once.
func (sw *StatusWriter) Stop() {
	sw.once.Do(func() {
		close(sw.done)
		sw.mu.Lock()
		fmt.Fprint(sw.w, "\r\033[K")
		sw.mu.Unlock()
	})
}

func (sw *StatusWriter) loop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for tick := 0; ; tick++ {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
		}
		sw.mu.Lock()
		select {
		case <-sw.done:
		default:
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", spinnerFrames[tick%len(spinnerFrames)], sw.message, formatElapsed(time.Since(sw.started)))
		}
		sw.mu.Unlock()
	}
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
