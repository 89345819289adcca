// Package functions loads file-function and tool descriptors from the
// function tree and keeps them in process-wide registries.
package functions

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"filethings/internal/semver"
)

const (
	TypeFile      = "file"
	TypeToolExe   = "tool.exe"
	TypeToolModel = "tool.model"
)

// CurrentPlatform returns the platform name used in descriptors.
func CurrentPlatform() string {
	return platformName(runtime.GOOS)
}

func platformName(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}

// Env carries the facts descriptors are filtered against.
type Env struct {
	Platform   string
	AppVersion string
	AppDataDir string
}

// StringSet is an unordered set that encodes as a sorted JSON array.
type StringSet map[string]struct{}

func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s StringSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

type Profile struct {
	Title   any    `json:"title"`
	Summary any    `json:"summary"`
	Version string `json:"version"`
	Website string `json:"website"`
	Authors any    `json:"authors"`
}

type VersionRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type Matches struct {
	Extensions StringSet    `json:"extensions"`
	Platforms  StringSet    `json:"platforms"`
	App        VersionRange `json:"app"`
}

// FileFunction describes a function the UI can run over selected paths.
type FileFunction struct {
	Name            string  `json:"name"`
	FuncType        string  `json:"func_type"`
	Profile         Profile `json:"profile"`
	Matches         Matches `json:"matches"`
	Variables       any     `json:"variables"`
	WorkerFile      string  `json:"worker_file"`
	WorkerUtilsFile string  `json:"worker_utils_file"`
}

// ToolFunction describes an external executable or model file.
type ToolFunction struct {
	Name               string       `json:"name"`
	FuncType           string       `json:"func_type"`
	Profile            Profile      `json:"profile"`
	Matches            Matches      `json:"matches"`
	WorkerFile         string       `json:"worker_file"`
	WorkerUtilsFile    string       `json:"worker_utils_file"`
	BinPath            string       `json:"bin_path"`
	BinVersionArgs     []string     `json:"bin_version_args"`
	RequiredBinVersion VersionRange `json:"required_bin_version"`
	Installation       any          `json:"installation"`
	Available          bool         `json:"available"`
	Version            string       `json:"version"`
}

func parseProfile(raw map[string]any) Profile {
	return Profile{
		Title:   raw["title"],
		Summary: raw["summary"],
		Version: str(raw["version"]),
		Website: str(raw["website"]),
		Authors: raw["authors"],
	}
}

func parseMatches(raw map[string]any) Matches {
	app, _ := raw["app"].(map[string]any)
	return Matches{
		Extensions: lowerSet(raw["extensions"]),
		Platforms:  lowerSet(raw["platforms"]),
		App:        VersionRange{Min: str(app["min"]), Max: str(app["max"])},
	}
}

// admit applies the platform and app-version filters.
func (env Env) admit(m Matches) error {
	if len(m.Platforms) == 0 {
		return fmt.Errorf("Ignore the function, not found platforms in matches")
	}
	if !m.Platforms.Has(env.Platform) && !m.Platforms.Has("*") {
		return fmt.Errorf("Ignore the function, not match current platform: %s", env.Platform)
	}
	if m.App.Min != "" {
		ok, err := semver.Compare(env.AppVersion, ">=", m.App.Min)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("Ignore the function, current app version is lower than min version: %s < %s", env.AppVersion, m.App.Min)
		}
	}
	if m.App.Max != "" {
		ok, err := semver.Compare(env.AppVersion, "<=", m.App.Max)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("Ignore the function, current app version is higher than max version: %s > %s", env.AppVersion, m.App.Max)
		}
	}
	return nil
}

func header(cfg map[string]any, env Env) (Profile, Matches, error) {
	profileRaw, ok := cfg["profile"].(map[string]any)
	if !ok {
		return Profile{}, Matches{}, fmt.Errorf("Not found `profile` key in config data")
	}
	matchesRaw, ok := cfg["matches"].(map[string]any)
	if !ok {
		return Profile{}, Matches{}, fmt.Errorf("Not found `matches` key in config data")
	}
	matches := parseMatches(matchesRaw)
	if err := env.admit(matches); err != nil {
		return Profile{}, Matches{}, err
	}
	return parseProfile(profileRaw), matches, nil
}

// NewFileFunction builds a file-function descriptor from its config.json.
func NewFileFunction(name string, cfg map[string]any, workerFile, workerUtilsFile string, env Env) (FileFunction, error) {
	funcType := str(cfg["type"])
	if funcType != TypeFile {
		return FileFunction{}, fmt.Errorf("Ignore the function, type is not file: %s", funcType)
	}
	profile, matches, err := header(cfg, env)
	if err != nil {
		return FileFunction{}, err
	}
	return FileFunction{
		Name:            name,
		FuncType:        funcType,
		Profile:         profile,
		Matches:         matches,
		Variables:       cfg["variables"],
		WorkerFile:      workerFile,
		WorkerUtilsFile: workerUtilsFile,
	}, nil
}

// NewToolFunction builds a tool descriptor from its config.json. The binary
// path is picked for the current platform, falling back to "*"; a value
// containing "/" is relative to the app data dir.
func NewToolFunction(name string, cfg map[string]any, workerFile, workerUtilsFile string, env Env) (ToolFunction, error) {
	funcType := str(cfg["type"])
	if funcType != TypeToolExe && funcType != TypeToolModel {
		return ToolFunction{}, fmt.Errorf("Ignore the function, unknown type: %s", funcType)
	}
	profile, matches, err := header(cfg, env)
	if err != nil {
		return ToolFunction{}, err
	}

	bin, _ := cfg["bin"].(map[string]any)
	pathMap, ok := bin["path"].(map[string]any)
	if !ok {
		return ToolFunction{}, fmt.Errorf("Not found `bin.path` key in config data")
	}
	rawPath, ok := pathMap[env.Platform]
	if !ok || rawPath == nil {
		rawPath, ok = pathMap["*"]
	}
	if !ok || rawPath == nil {
		return ToolFunction{}, fmt.Errorf("Not found bin path for current platform")
	}
	binPath := resolveBinPath(str(rawPath), env.AppDataDir)

	versionArgs := []string{}
	if arr, ok := bin["version_arguments"].([]any); ok {
		for _, v := range arr {
			versionArgs = append(versionArgs, str(v))
		}
	}
	if funcType == TypeToolExe && len(versionArgs) == 0 {
		return ToolFunction{}, fmt.Errorf("Missing `version_arguments` in config data for tool.exe")
	}

	required, _ := bin["required_version"].(map[string]any)
	return ToolFunction{
		Name:            name,
		FuncType:        funcType,
		Profile:         profile,
		Matches:         matches,
		WorkerFile:      workerFile,
		WorkerUtilsFile: workerUtilsFile,
		BinPath:         binPath,
		BinVersionArgs:  versionArgs,
		RequiredBinVersion: VersionRange{
			Min: str(required["min"]),
			Max: str(required["max"]),
		},
		Installation: bin["installation"],
	}, nil
}

func resolveBinPath(value, appDataDir string) string {
	if !strings.Contains(value, "/") {
		return value
	}
	parts := append([]string{appDataDir}, strings.Split(value, "/")...)
	return filepath.Join(parts...)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func lowerSet(v any) StringSet {
	set := StringSet{}
	arr, _ := v.([]any)
	for _, item := range arr {
		set[strings.ToLower(str(item))] = struct{}{}
	}
	return set
}
