package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"filethings/internal/updater"
)

func apply(t *testing.T, m UpdateModel, msg tea.Msg) (UpdateModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(UpdateModel), cmd
}

func TestStateMsg(t *testing.T) {
	m := NewUpdateModel("update", updater.KindFunctions, updater.KindI18n)

	m, _ = apply(t, m, StateMsg{Kind: updater.KindFunctions, State: updater.StateFetchingArchive, Detail: "0.4.0"})
	if got := m.State(updater.KindFunctions); got != updater.StateFetchingArchive {
		t.Errorf("functions state = %q", got)
	}
	if got := m.State(updater.KindI18n); got != StatePending {
		t.Errorf("i18n state = %q, want pending", got)
	}

	m, _ = apply(t, m, StateMsg{Kind: "fonts", State: updater.StateDone})
	if m.State("fonts") != "" {
		t.Error("unknown kind should be ignored")
	}
}

func TestProgressCounts(t *testing.T) {
	m := NewUpdateModel("", "a", "b", "c")
	m, _ = apply(t, m, StateMsg{Kind: "a", State: updater.StateUpToDate})
	m, _ = apply(t, m, StateMsg{Kind: "b", State: updater.StateExtracting})
	m, _ = apply(t, m, StateMsg{Kind: "c", State: updater.StateFailed})

	finishedRows, total := m.progressCounts()
	if finishedRows != 2 || total != 3 {
		t.Errorf("counts = %d/%d, want 2/3", finishedRows, total)
	}
}

func TestWorkDoneAndError(t *testing.T) {
	m := NewUpdateModel("", "a")
	done, cmd := apply(t, m, WorkDoneMsg{})
	if !done.Done() || cmd == nil || done.Err() != nil {
		t.Errorf("after WorkDoneMsg: done=%v cmd=%v err=%v", done.Done(), cmd != nil, done.Err())
	}

	failed, cmd := apply(t, m, ErrorMsg{Err: errors.New("boom")})
	if !failed.Done() || cmd == nil || failed.Err() == nil {
		t.Error("expected ErrorMsg to finish with an error")
	}
	if !strings.Contains(failed.View(), "Error: boom") {
		t.Errorf("view = %q", failed.View())
	}
}

func TestCtrlCInterrupts(t *testing.T) {
	m := NewUpdateModel("", "a")
	m, cmd := apply(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.Done() || !m.Interrupted() || cmd == nil {
		t.Error("expected ctrl+c to quit and mark the model interrupted")
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := NewUpdateModel("", "a")
	m, cmd := apply(t, m, tickMsg(time.Now()))
	if m.tick != 1 || cmd == nil {
		t.Errorf("tick = %d, cmd = %v", m.tick, cmd != nil)
	}
	m, _ = apply(t, m, WorkDoneMsg{})
	if _, cmd = apply(t, m, tickMsg(time.Now())); cmd != nil {
		t.Error("expected no tick after done")
	}
}

func TestView(t *testing.T) {
	m := NewUpdateModel("Updating resources", updater.KindFunctions, updater.KindI18n)
	m, _ = apply(t, m, StateMsg{Kind: updater.KindFunctions, State: updater.StateDone, Detail: "0.4.0"})

	view := m.View()
	for _, want := range []string{"Updating resources", "KIND", "STATE", "DETAIL", "functions", "0.4.0", "i18n", "pending", "Updating 1/2..."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = apply(t, m, WorkDoneMsg{})
	if strings.Contains(m.View(), "Updating 1/2") {
		t.Error("footer should disappear once done")
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "-"},
		{"  ", "-"},
		{"hello", "hello"},
		{" hello ", "hello"},
	}
	for _, tt := range tests {
		if got := NonEmptyOrDash(tt.input); got != tt.want {
			t.Errorf("NonEmptyOrDash(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"a longer string here", 10, "a longe..."},
		{"abcd", 3, "abc"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.input, tt.max); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		tick  int
		want  string
	}{
		{"short", 10, 0, "short"},
		{"hello world here", 5, 0, "hello"},
		{"hello world here", 5, 1, "ello "},
		{"abcdef", 4, 6, "   a"},
	}
	for _, tt := range tests {
		if got := marqueeText(tt.text, tt.width, tt.tick); got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestPlainReporter(t *testing.T) {
	var b strings.Builder
	rep := PlainReporter{Printf: func(format string, args ...any) {
		b.WriteString(strings.TrimSpace(strings.Join(strings.Fields(fmt.Sprintf(format, args...)), " ")))
		b.WriteByte('\n')
	}}
	rep.Report(updater.KindI18n, updater.StateUpToDate, "")
	rep.Report(updater.KindFunctions, updater.StateDone, "0.4.0")

	want := "i18n up-to-date\nfunctions done 0.4.0\n"
	if b.String() != want {
		t.Errorf("plain output = %q, want %q", b.String(), want)
	}
}

func TestDetectMode(t *testing.T) {
	var b strings.Builder
	if DetectMode(&b, false, true) != ModeJSON {
		t.Error("json flag should win")
	}
	if DetectMode(&b, false, false) != ModePlain {
		t.Error("non-terminal writer should be plain")
	}
}
