package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filethings/internal/functions"
	"filethings/internal/shell"
)

type fakeRunner struct {
	calls  int
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ []string, _ shell.RunOptions) (shell.RunResult, error) {
	f.calls++
	return shell.RunResult{Stdout: []byte(f.stdout)}, f.err
}

func newRegistry(tools ...functions.ToolFunction) *functions.ToolRegistry {
	reg := functions.NewToolRegistry()
	items := map[string]functions.ToolFunction{}
	for _, tool := range tools {
		items[tool.Name] = tool
	}
	_ = reg.Replace(items)
	return reg
}

func TestCheckAvailableExeMemoized(t *testing.T) {
	reg := newRegistry(functions.ToolFunction{
		Name: "tool.exe.ffmpeg", FuncType: functions.TypeToolExe, BinPath: "ffmpeg", BinVersionArgs: []string{"-version"},
	})
	runner := &fakeRunner{stdout: "ffmpeg version 6.1.1\nbuilt with gcc"}
	p := &Prober{Registry: reg, Runner: runner}

	for i := 0; i < 3; i++ {
		ok, err := p.CheckAvailable(context.Background(), "tool.exe.ffmpeg")
		if err != nil || !ok {
			t.Fatalf("probe %d: ok=%v err=%v", i, ok, err)
		}
	}
	if runner.calls != 1 {
		t.Fatalf("expected a single probe, got %d", runner.calls)
	}
	tool, _, _ := reg.Get("tool.exe.ffmpeg")
	if tool.Version != "ffmpeg version 6.1.1" {
		t.Fatalf("version line not recorded: %q", tool.Version)
	}
}

func TestCheckAvailableExeFailure(t *testing.T) {
	reg := newRegistry(functions.ToolFunction{
		Name: "tool.exe.exiftool", FuncType: functions.TypeToolExe, BinPath: "/missing/exiftool", BinVersionArgs: []string{"-ver"},
	})
	p := &Prober{Registry: reg, Runner: &fakeRunner{err: errors.New("not found")}}
	ok, err := p.CheckAvailable(context.Background(), "tool.exe.exiftool")
	if err != nil || ok {
		t.Fatalf("expected unavailable, got ok=%v err=%v", ok, err)
	}
}

func TestCheckAvailableModel(t *testing.T) {
	model := filepath.Join(t.TempDir(), "model.onnx")
	reg := newRegistry(functions.ToolFunction{Name: "tool.model.rmbg", FuncType: functions.TypeToolModel, BinPath: model})
	p := &Prober{Registry: reg, Runner: &fakeRunner{}}

	if ok, _ := p.CheckAvailable(context.Background(), "tool.model.rmbg"); ok {
		t.Fatal("missing model reported available")
	}
	if err := os.WriteFile(model, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := p.CheckAvailable(context.Background(), "tool.model.rmbg"); !ok {
		t.Fatal("existing model reported unavailable")
	}
	if err := os.Remove(model); err != nil {
		t.Fatal(err)
	}
	if ok, _ := p.CheckAvailable(context.Background(), "tool.model.rmbg"); !ok {
		t.Fatal("availability must not revert")
	}
}

func TestCheckAvailableUnknown(t *testing.T) {
	p := &Prober{Registry: newRegistry(), Runner: &fakeRunner{}}
	ok, err := p.CheckAvailable(context.Background(), "tool.exe.nope")
	if ok || err != nil {
		t.Fatalf("unknown tool: ok=%v err=%v", ok, err)
	}
}

func TestProbeAllChecksRange(t *testing.T) {
	reg := newRegistry(
		functions.ToolFunction{
			Name: "tool.exe.old", FuncType: functions.TypeToolExe, BinPath: "old", BinVersionArgs: []string{"-v"},
			RequiredBinVersion: functions.VersionRange{Min: "7.0"},
		},
		functions.ToolFunction{
			Name: "tool.exe.ok", FuncType: functions.TypeToolExe, BinPath: "ok", BinVersionArgs: []string{"-v"},
			RequiredBinVersion: functions.VersionRange{Min: "6.0", Max: "6.9"},
		},
	)
	p := &Prober{Registry: reg, Runner: &fakeRunner{stdout: "tool version 6.1.1"}}
	statuses, err := p.ProbeAll(context.Background(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 || statuses[0].Tool != "tool.exe.ok" {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	if !statuses[0].Satisfied {
		t.Fatalf("6.1.1 should satisfy [6.0, 6.9]: %+v", statuses[0])
	}
	if statuses[1].Satisfied || statuses[1].Error == "" {
		t.Fatalf("6.1.1 should not satisfy min 7.0: %+v", statuses[1])
	}
}

func TestVersionHelpers(t *testing.T) {
	if normalizeVersion("ffmpeg version 6.1.1-static") != "6.1.1" {
		t.Fatal("normalize failed")
	}
	if !meetsMinimum("6.1", "6.1.0") || meetsMinimum("6.0.9", "6.1") {
		t.Fatal("minimum comparison wrong")
	}
	if !meetsMaximum("6.1", "") || meetsMaximum("7", "6.9.9") {
		t.Fatal("maximum comparison wrong")
	}
}
