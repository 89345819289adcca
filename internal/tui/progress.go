package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "

	kindWidth   = 10
	stateWidth  = 18
	detailWidth = 48
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner and the detail marquee.
type tickMsg time.Time

type row struct {
	kind   string
	state  string
	detail string
}

// UpdateModel renders one row per update kind with its current pipeline
// state. Rows are fixed up front; states arrive as StateMsg.
type UpdateModel struct {
	title       string
	rows        []row
	index       map[string]int
	done        bool
	interrupted bool
	err         error
	tick        int
}

// NewUpdateModel creates a model with a pending row for each kind.
func NewUpdateModel(title string, kinds ...string) UpdateModel {
	m := UpdateModel{title: title, index: make(map[string]int, len(kinds))}
	for _, kind := range kinds {
		m.index[kind] = len(m.rows)
		m.rows = append(m.rows, row{kind: kind, state: StatePending})
	}
	return m
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m UpdateModel) Init() tea.Cmd {
	return scheduleTick()
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case StateMsg:
		idx, ok := m.index[msg.Kind]
		if !ok {
			return m, nil
		}
		m.rows[idx].state = msg.State
		m.rows[idx].detail = msg.Detail
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			m.interrupted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m UpdateModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(HeaderStyle.Render(m.title))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s  %s  %s\n",
		HeaderStyle.Render(pad("KIND", kindWidth)),
		HeaderStyle.Render(pad("STATE", stateWidth)),
		HeaderStyle.Render("DETAIL"))

	for _, r := range m.rows {
		detail := r.detail
		if !m.done && !finished(r.state) && len(strings.TrimSpace(detail)) > detailWidth {
			detail = marqueeText(detail, detailWidth, m.tick)
		} else {
			detail = TruncateWithEllipsis(detail, detailWidth)
		}
		fmt.Fprintf(&b, "%s  %s  %s\n",
			pad(r.kind, kindWidth),
			StateStyle(r.state).Render(pad(r.state, stateWidth)),
			NonEmptyOrDash(detail))
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
	case !m.done:
		finishedRows, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s Updating %d/%d...\n", spinner, finishedRows, total)
	}
	return b.String()
}

// progressCounts returns (finished, total) rows.
func (m UpdateModel) progressCounts() (int, int) {
	n := 0
	for _, r := range m.rows {
		if finished(r.state) {
			n++
		}
	}
	return n, len(m.rows)
}

// State returns the last reported state for kind.
func (m UpdateModel) State(kind string) string {
	if idx, ok := m.index[kind]; ok {
		return m.rows[idx].state
	}
	return ""
}

func (m UpdateModel) Done() bool        { return m.done }
func (m UpdateModel) Interrupted() bool { return m.interrupted }
func (m UpdateModel) Err() error        { return m.err }

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// marqueeText renders a window of width over text that slides one
// character per tick, with a gap between cycles.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	cycle := text + marqueeGap
	offset := tick % len(cycle)
	var out strings.Builder
	out.Grow(width)
	for i := 0; i < width; i++ {
		out.WriteByte(cycle[(offset+i)%len(cycle)])
	}
	return out.String()
}

// NonEmptyOrDash returns "-" for empty or whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis cuts value to max bytes, ending in "..." when there
// is room for it.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
