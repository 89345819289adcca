package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"filethings/internal/app"
	"filethings/internal/apperr"
	"filethings/internal/config"
	"filethings/internal/functions"
	"filethings/internal/logx"
	"filethings/internal/paths"
	"filethings/internal/shell"
)

type runCall struct {
	command string
	args    []string
}

// fakeRunner answers by command name. Commands listed in fail exit with the
// given stderr.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	out   map[string]string
	fail  map[string]string
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, _ shell.RunOptions) (shell.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{command: command, args: append([]string(nil), args...)})
	if stderr, ok := f.fail[command]; ok {
		return shell.RunResult{Stderr: []byte(stderr)}, errors.New("exit status 1")
	}
	return shell.RunResult{Stdout: []byte(f.out[command])}, nil
}

type dispatchRecord struct {
	prefix, status string
}

type recordingMetrics struct {
	mu         sync.Mutex
	dispatches []dispatchRecord
}

func (m *recordingMetrics) ObserveDispatch(prefix, status string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, dispatchRecord{prefix, status})
}
func (m *recordingMetrics) IncToolProbe(string, bool) {}
func (m *recordingMetrics) IncUpdate(string, string)  {}
func (m *recordingMetrics) IncRPC(string, string)     {}

type testEnv struct {
	d       *Dispatcher
	svc     *app.Services
	runner  *fakeRunner
	metrics *recordingMetrics
	root    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	resolver := paths.NewAt(filepath.Join(root, "data"), filepath.Join(root, "res"), "0.3.1")
	runner := &fakeRunner{out: map[string]string{}, fail: map[string]string{}}
	m := &recordingMetrics{}
	svc := app.Assemble(config.DefaultSettings(), resolver, logx.Discard(), m, runner)
	return &testEnv{d: New(svc), svc: svc, runner: runner, metrics: m, root: root}
}

func (e *testEnv) dispatch(t *testing.T, name string, p Params) *Envelope {
	t.Helper()
	env, err := e.d.Dispatch(context.Background(), name, p)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return env
}

func (e *testEnv) dispatchErr(t *testing.T, name string, p Params) error {
	t.Helper()
	_, err := e.d.Dispatch(context.Background(), name, p)
	if err == nil {
		t.Fatalf("%s: expected error", name)
	}
	return err
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	e := newTestEnv(t)
	err := e.dispatchErr(t, "nope.cmd", nil)
	if !apperr.Is(err, apperr.KindUnsupported) {
		t.Fatalf("kind = %s, want unsupported", apperr.KindOf(err))
	}
	if err.Error() != "Unknown command: nope.cmd" {
		t.Fatalf("message = %q", err.Error())
	}
	if len(e.metrics.dispatches) != 1 || e.metrics.dispatches[0] != (dispatchRecord{"nope", StatusError}) {
		t.Fatalf("metrics = %+v", e.metrics.dispatches)
	}
}

func TestDispatchUnavailableTool(t *testing.T) {
	e := newTestEnv(t)
	err := e.dispatchErr(t, "tool.exe.ffmpeg", Params{"arguments": []any{"-i", "a.mp4"}})
	if !apperr.Is(err, apperr.KindToolUnavailable) {
		t.Fatalf("kind = %s", apperr.KindOf(err))
	}
	want := "Tool 'tool.exe.ffmpeg' not available, please install it first."
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
	if len(e.runner.calls) != 0 {
		t.Fatalf("runner should not be called, got %+v", e.runner.calls)
	}
}

func TestDispatchToolExe(t *testing.T) {
	e := newTestEnv(t)
	_ = e.svc.Tools.Replace(map[string]functions.ToolFunction{
		"tool.exe.magick": {
			Name:           "tool.exe.magick",
			FuncType:       functions.TypeToolExe,
			BinPath:        "/opt/magick",
			BinVersionArgs: []string{"-version"},
		},
	})
	e.runner.out["/opt/magick"] = "converted\n"

	env := e.dispatch(t, "tool.exe.magick", Params{"arguments": []any{"in.png", []any{"-resize", 50.0}, "out.png"}})
	if env.Content != "converted" {
		t.Fatalf("content = %v", env.Content)
	}
	if len(e.runner.calls) != 2 {
		t.Fatalf("calls = %+v", e.runner.calls)
	}
	if got := e.runner.calls[0].args; !reflect.DeepEqual(got, []string{"-version"}) {
		t.Fatalf("probe args = %v", got)
	}
	if got := e.runner.calls[1].args; !reflect.DeepEqual(got, []string{"in.png", "-resize", "50", "out.png"}) {
		t.Fatalf("run args = %v", got)
	}

	// the probe result is remembered
	e.dispatch(t, "tool.exe.magick", Params{})
	if len(e.runner.calls) != 3 {
		t.Fatalf("expected a single probe, calls = %d", len(e.runner.calls))
	}
}

func TestDispatchToolModelMock(t *testing.T) {
	e := newTestEnv(t)
	model := filepath.Join(e.root, "models", "u2net.onnx")
	writeFile(t, model, []byte("onnx"))
	_ = e.svc.Tools.Replace(map[string]functions.ToolFunction{
		"tool.model.u2net": {Name: "tool.model.u2net", FuncType: functions.TypeToolModel, BinPath: model},
	})

	env := e.dispatch(t, "tool.model.u2net", Params{"arguments": []any{"-v"}})
	if env.Status != StatusOK || env.Content != "is_exists" {
		t.Fatalf("version probe = %+v", env)
	}

	env = e.dispatch(t, "tool.model.u2net", Params{})
	if env.Status != StatusError || env.Message != "No arguments provided." {
		t.Fatalf("empty args = %+v", env)
	}

	env = e.dispatch(t, "tool.model.u2net", Params{"arguments": []any{"run"}})
	if env.Status != StatusOK || env.Content != nil {
		t.Fatalf("run = %+v", env)
	}
}

func TestDispatchShellIgnoreError(t *testing.T) {
	e := newTestEnv(t)
	e.runner.fail["false"] = "boom\n"

	err := e.dispatchErr(t, "shell.false", Params{})
	if err.Error() != "boom" {
		t.Fatalf("error = %q", err.Error())
	}

	env := e.dispatch(t, "shell.false", Params{"ignore_error": false})
	if env.Status != StatusOK || env.Content != "boom" {
		t.Fatalf("ignored = %+v", env)
	}
}

func TestDispatchShellArguments(t *testing.T) {
	e := newTestEnv(t)
	e.runner.out["echo"] = "a 1\n"
	env := e.dispatch(t, "shell.echo", Params{"arguments": []any{"a", 1.0}})
	if env.Content != "a 1" {
		t.Fatalf("content = %v", env.Content)
	}

	err := e.dispatchErr(t, "shell.echo", Params{"arguments": []any{map[string]any{"x": 1.0}}})
	if !apperr.Is(err, apperr.KindParam) {
		t.Fatalf("kind = %s", apperr.KindOf(err))
	}
}

func TestNamesSorted(t *testing.T) {
	e := newTestEnv(t)
	names := e.d.Names()
	if len(names) == 0 {
		t.Fatal("no names")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("not sorted at %d: %s %s", i, names[i-1], names[i])
		}
	}
	for _, want := range []string{"path.parse_for_task", "file.binary.split", "text.datetime.split", "zip.unzip_file"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s missing from %v", want, names)
		}
	}
}

func TestEnvelopeJSON(t *testing.T) {
	raw, err := (&Envelope{Content: "x"}).JSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"content":"x","status":"ok","message":"","output_paths":[]}`
	if raw != want {
		t.Fatalf("json = %s", raw)
	}
}

func TestParamsMessages(t *testing.T) {
	p, err := DecodeParams(`{"a":1,"b":"","c":"v","n":null}`)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		keys []string
		want string
	}{
		{[]string{"missing"}, "Missing parameter: missing"},
		{[]string{"n", "x"}, "Missing parameter: n"},
		{[]string{"a"}, "Invalid parameter: a"},
		{[]string{"b"}, "Missing value for parameter: b"},
	}
	for _, tc := range cases {
		_, err := p.String(tc.keys...)
		if err == nil || err.Error() != tc.want {
			t.Fatalf("%v: err = %v, want %q", tc.keys, err, tc.want)
		}
	}
	if v, err := p.String("missing", "c"); err != nil || v != "v" {
		t.Fatalf("alias lookup = %q, %v", v, err)
	}

	empty, err := DecodeParams("")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty = %v, %v", empty, err)
	}
	if _, err := DecodeParams("[1]"); err == nil {
		t.Fatal("expected error for non-object params")
	}
}

func TestErrorsAreKinded(t *testing.T) {
	e := newTestEnv(t)
	err := e.dispatchErr(t, "file.read", Params{})
	if !apperr.Is(err, apperr.KindParam) || !strings.Contains(err.Error(), "input_file") {
		t.Fatalf("err = %v", err)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	e := newTestEnv(t)
	e.d.table["test.boom"] = func(context.Context, Params) (*Envelope, error) {
		panic("boom")
	}
	err := e.dispatchErr(t, "test.boom", nil)
	if err.Error() != "Command test.boom failed: boom" {
		t.Fatalf("err = %v", err)
	}
	if !apperr.Is(err, apperr.KindIO) {
		t.Fatalf("kind = %v", apperr.KindOf(err))
	}
}
