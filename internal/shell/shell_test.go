package shell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"filethings/internal/apperr"
)

type fakeRunner struct {
	calls  [][]string
	result RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, _ RunOptions) (RunResult, error) {
	f.calls = append(f.calls, append([]string{command}, args...))
	return f.result, f.err
}

func TestExecTrimsStdout(t *testing.T) {
	r := &fakeRunner{result: RunResult{Stdout: []byte("  hello\n")}}
	out, err := Exec(context.Background(), r, "echo", []string{"hello"})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected trimmed stdout, got %q", out)
	}
}

func TestExecUsesStderrAsError(t *testing.T) {
	r := &fakeRunner{
		result: RunResult{Stderr: []byte("boom\n")},
		err:    errors.New("exit status 1"),
	}
	_, err := Exec(context.Background(), r, "false", nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected stderr message, got %v", err)
	}

	r.result = RunResult{}
	_, err = Exec(context.Background(), r, "false", nil)
	if err == nil || err.Error() != "exit status 1" {
		t.Fatalf("expected exec error fallback, got %v", err)
	}
}

func TestFlattenArgs(t *testing.T) {
	got, err := FlattenArgs([]any{"-i", float64(3), []any{"a", []any{float64(1.5)}}, float64(-2)})
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	want := []string{"-i", "3", "a", "1.5", "-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFlattenArgsRejectsObjects(t *testing.T) {
	_, err := FlattenArgs([]any{map[string]any{"a": true}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindParam) {
		t.Fatalf("expected param error, got %v", err)
	}
	if err.Error() != `Invalid type of command argument: {"a":true}` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if _, err := FlattenArgs([]any{true}); err == nil {
		t.Fatal("expected bool rejection")
	}
}

func TestTrashCommandPerPlatform(t *testing.T) {
	orig := goos
	defer func() { goos = orig }()

	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	goos = "linux"
	r := &fakeRunner{}
	if err := Trash(context.Background(), r, target); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.calls[0], []string{"gio", "trash", target}) {
		t.Fatalf("unexpected linux call %v", r.calls[0])
	}

	goos = "darwin"
	r = &fakeRunner{}
	if err := Trash(context.Background(), r, target); err != nil {
		t.Fatal(err)
	}
	if r.calls[0][0] != "osascript" {
		t.Fatalf("unexpected darwin call %v", r.calls[0])
	}
}

func TestRevealIgnoresExplorerExitCode(t *testing.T) {
	orig := goos
	defer func() { goos = orig }()
	goos = "windows"

	r := &fakeRunner{err: errors.New("exit status 1")}
	if err := Reveal(context.Background(), r, `C:\x.txt`); err != nil {
		t.Fatalf("explorer failures should be ignored, got %v", err)
	}
	if r.calls[0][1] != `/select,C:\x.txt` {
		t.Fatalf("unexpected args %v", r.calls[0])
	}
}
