package functions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type testTree struct{ dir string }

func (t testTree) FunctionDirUsing() string { return t.dir }
func (t testTree) FunctionCategoryDirUsing(parts ...string) string {
	return filepath.Join(append([]string{t.dir}, parts...)...)
}

type captureLogger struct{ lines []string }

func (c *captureLogger) Printf(format string, v ...any) {
	c.lines = append(c.lines, format)
}

var testEnv = Env{Platform: "linux", AppVersion: "0.3.0", AppDataDir: "/data/FileThings"}

func writeFunction(t *testing.T, root, category, name, config string, worker bool) {
	t.Helper()
	dir := filepath.Join(root, category, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if worker {
		if err := os.WriteFile(filepath.Join(dir, "worker.js"), []byte("//"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func fileConfig(platforms, exts string, app string) string {
	return `{"type":"file","profile":{"title":{"en":"T"},"version":"1.0"},` +
		`"matches":{"platforms":` + platforms + `,"extensions":` + exts + `,"app":` + app + `}}`
}

func TestLoadFileFunctionsFilters(t *testing.T) {
	root := t.TempDir()
	writeFunction(t, root, "files", "resize", fileConfig(`["*"]`, `["PNG","jpg"]`, `{}`), true)
	writeFunction(t, root, "files", "macos_only", fileConfig(`["macos"]`, `["png"]`, `{}`), true)
	writeFunction(t, root, "files", "too_new", fileConfig(`["linux"]`, `["png"]`, `{"min":"0.4.0"}`), true)
	writeFunction(t, root, "files", "too_old", fileConfig(`["linux"]`, `["png"]`, `{"max":"0.2.9"}`), true)
	writeFunction(t, root, "files", "no_platforms", fileConfig(`[]`, `["png"]`, `{}`), true)
	writeFunction(t, root, "files", "no_worker", fileConfig(`["*"]`, `["png"]`, `{}`), false)
	writeFunction(t, root, "files", "no_config", "", true)
	writeFunction(t, root, "files", "bad_type", `{"type":"tool.exe","profile":{},"matches":{"platforms":["*"]}}`, true)

	reg := NewFileRegistry()
	logger := &captureLogger{}
	n, err := Loader{Tree: testTree{root}, Env: testEnv, Logger: logger}.LoadFileFunctions(reg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 admitted function, got %d", n)
	}
	fn, ok, err := reg.Get("file.resize")
	if err != nil || !ok {
		t.Fatalf("file.resize missing: %v", err)
	}
	if !fn.Matches.Extensions.Has("png") {
		t.Fatal("extensions should be lowercased")
	}
	if fn.WorkerUtilsFile != filepath.Join(root, "_utils", "file.js") {
		t.Fatalf("unexpected utils file %s", fn.WorkerUtilsFile)
	}
	if fn.Profile.Version != "1.0" {
		t.Fatalf("profile not parsed: %+v", fn.Profile)
	}
	if len(logger.lines) < 7 {
		t.Fatalf("expected warnings for rejected entries, got %v", logger.lines)
	}
}

func TestAppVersionBounds(t *testing.T) {
	m := Matches{Platforms: NewStringSet("*"), App: VersionRange{Min: "0.3.0", Max: "0.3.0"}}
	if err := testEnv.admit(m); err != nil {
		t.Fatalf("inclusive bounds should admit: %v", err)
	}
	m.App.Min = "0.3.1"
	if err := testEnv.admit(m); err == nil || !strings.Contains(err.Error(), "lower than min") {
		t.Fatalf("expected min rejection, got %v", err)
	}
}

func toolConfig(kind, path, versionArgs string) string {
	return `{"type":"` + kind + `","profile":{"title":"x"},"matches":{"platforms":["*"],"extensions":[]},` +
		`"bin":{"path":` + path + `,"version_arguments":` + versionArgs + `,"required_version":{"min":"4.0"},"installation":{"url":"u"}}}`
}

func TestLoadTools(t *testing.T) {
	root := t.TempDir()
	writeFunction(t, root, "executables", "ffmpeg", toolConfig("tool.exe", `{"linux":"ffmpeg","*":"other"}`, `["-version"]`), true)
	writeFunction(t, root, "executables", "noargs", toolConfig("tool.exe", `{"*":"x"}`, `[]`), true)
	writeFunction(t, root, "executables", "nopath", toolConfig("tool.exe", `{"windows":"x.exe"}`, `["-v"]`), true)
	writeFunction(t, root, "models", "rmbg", toolConfig("tool.model", `{"*":"models/rmbg/model.onnx"}`, `[]`), true)

	reg := NewToolRegistry()
	n, err := Loader{Tree: testTree{root}, Env: testEnv}.LoadTools(reg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tools, got %d", n)
	}

	path, err := reg.BinPath("tool.exe.ffmpeg")
	if err != nil || path != "ffmpeg" {
		t.Fatalf("platform path not preferred: %q %v", path, err)
	}
	path, err = reg.BinPath("tool.model.rmbg")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/data/FileThings", "models", "rmbg", "model.onnx"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	if _, err := reg.BinPath("tool.exe.missing"); err == nil {
		t.Fatal("expected not found")
	}

	tool, _, _ := reg.Get("tool.exe.ffmpeg")
	if tool.Available || tool.Version != "" {
		t.Fatal("tools start unavailable")
	}
	if tool.RequiredBinVersion.Min != "4.0" {
		t.Fatalf("required version not parsed: %+v", tool.RequiredBinVersion)
	}
	if tool.WorkerUtilsFile != filepath.Join(root, "_utils", "tool.js") {
		t.Fatalf("unexpected utils %s", tool.WorkerUtilsFile)
	}

	list, err := reg.ListTools()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(list.ExeNames, []string{"tool.exe.ffmpeg"}) || !reflect.DeepEqual(list.ModelNames, []string{"tool.model.rmbg"}) {
		t.Fatalf("unexpected partition %v %v", list.ExeNames, list.ModelNames)
	}
}

func TestMarkAvailableIsMonotonic(t *testing.T) {
	reg := NewToolRegistry()
	_ = reg.Replace(map[string]ToolFunction{"tool.exe.a": {Name: "tool.exe.a", FuncType: TypeToolExe}})
	if err := reg.MarkAvailable("tool.exe.a", "a 1.0"); err != nil {
		t.Fatal(err)
	}
	if err := reg.MarkAvailable("tool.exe.a", ""); err != nil {
		t.Fatal(err)
	}
	tool, _, _ := reg.Get("tool.exe.a")
	if !tool.Available || tool.Version != "a 1.0" {
		t.Fatalf("unexpected state %+v", tool)
	}
}

func TestDescriptorJSON(t *testing.T) {
	tool := ToolFunction{
		Name:           "tool.exe.a",
		FuncType:       TypeToolExe,
		Matches:        Matches{Extensions: NewStringSet("b", "a"), Platforms: NewStringSet("*")},
		BinVersionArgs: []string{"-v"},
	}
	data, err := json.Marshal(tool)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"name", "func_type", "profile", "matches", "worker_file", "worker_utils_file", "bin_path", "bin_version_args", "required_bin_version", "installation", "available", "version"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
	exts := decoded["matches"].(map[string]any)["extensions"].([]any)
	if exts[0] != "a" || exts[1] != "b" {
		t.Fatalf("extensions should be sorted: %v", exts)
	}
}

func TestPlatformName(t *testing.T) {
	if platformName("darwin") != "macos" || platformName("windows") != "windows" || platformName("linux") != "linux" {
		t.Fatal("unexpected platform mapping")
	}
}
