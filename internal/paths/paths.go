package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"filethings/internal/config"
	"filethings/internal/semver"
)

const (
	// AppName is the directory name used under the OS data dir.
	AppName = "FileThings"
	// DataDirEnv relocates the app data dir.
	DataDirEnv = "FILETHINGS_DATA_DIR"
)

// Resolver maps logical asset kinds to directories. User app data under
// <kind>/v<major.minor> shadows the shipped resources tree.
type Resolver struct {
	appData    string
	resources  string
	appVersion string
}

// New builds a resolver. dataDirFlag wins over FILETHINGS_DATA_DIR, which
// wins over the OS data dir.
func New(dataDirFlag string, settings config.Settings, appVersion string) (*Resolver, error) {
	appData, err := resolveAppDataDir(dataDirFlag)
	if err != nil {
		return nil, err
	}
	resources, err := resolveResourcesDir(settings.ResourcesDir)
	if err != nil {
		return nil, err
	}
	return &Resolver{appData: appData, resources: resources, appVersion: appVersion}, nil
}

// NewAt returns a resolver with explicit roots.
func NewAt(appData, resources, appVersion string) *Resolver {
	return &Resolver{
		appData:    filepath.Clean(appData),
		resources:  filepath.Clean(resources),
		appVersion: appVersion,
	}
}

// AppDataRoot resolves only the app data dir, used before settings are read.
func AppDataRoot(dataDirFlag string) (string, error) {
	return resolveAppDataDir(dataDirFlag)
}

func resolveAppDataDir(flag string) (string, error) {
	if strings.TrimSpace(flag) != "" {
		abs, err := filepath.Abs(flag)
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		return abs, nil
	}
	if override, ok := os.LookupEnv(DataDirEnv); ok && override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", DataDirEnv, err)
		}
		return abs, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName), nil
		}
		return filepath.Join(home, "AppData", "Roaming", AppName), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
			return filepath.Join(xdg, AppName), nil
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	}
}

func resolveResourcesDir(configured string) (string, error) {
	if strings.TrimSpace(configured) != "" {
		abs, err := filepath.Abs(configured)
		if err != nil {
			return "", fmt.Errorf("resolve resources dir: %w", err)
		}
		return abs, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "resources"), nil
}

func (r *Resolver) AppDataDir() string   { return r.appData }
func (r *Resolver) ResourcesDir() string { return r.resources }
func (r *Resolver) AppVersion() string   { return r.appVersion }
func (r *Resolver) DownloadDir() string  { return filepath.Join(r.appData, "downloads") }
func (r *Resolver) TempDir() string      { return filepath.Join(r.appData, ".temp") }
func (r *Resolver) LogsDir() string      { return filepath.Join(r.appData, "logs") }

// SettingsFile is the YAML service settings path.
func (r *Resolver) SettingsFile() string {
	return filepath.Join(r.appData, config.SettingsFileName)
}

// AppVerDirname returns v<major>.<minor> for the running app version.
func (r *Resolver) AppVerDirname() string {
	return semver.MajorMinor(r.appVersion)
}

func (r *Resolver) FunctionDirInAppData() string {
	return filepath.Join(r.appData, "functions", r.AppVerDirname())
}

func (r *Resolver) I18nDirInAppData() string {
	return filepath.Join(r.appData, "i18n", r.AppVerDirname())
}

func (r *Resolver) TemplateDirInAppData() string {
	return filepath.Join(r.appData, "templates", r.AppVerDirname())
}

func (r *Resolver) FunctionDirUsing() string {
	return r.overlay(r.FunctionDirInAppData(), "functions")
}

func (r *Resolver) I18nDirUsing() string {
	return r.overlay(r.I18nDirInAppData(), "i18n")
}

func (r *Resolver) TemplateDirUsing() string {
	return r.overlay(r.TemplateDirInAppData(), "templates")
}

// FunctionCategoryDirUsing joins parts under the active function tree.
func (r *Resolver) FunctionCategoryDirUsing(parts ...string) string {
	return filepath.Join(append([]string{r.FunctionDirUsing()}, parts...)...)
}

func (r *Resolver) overlay(appDataDir, kind string) string {
	if _, err := os.Stat(appDataDir); err == nil {
		return appDataDir
	}
	return filepath.Join(r.resources, kind)
}

// FontDir returns the per-user font directory. On Windows the system-wide
// fonts dir is used when the per-user one is missing.
func (r *Resolver) FontDir() (string, error) {
	return fontDir(runtime.GOOS)
}

func fontDir(goos string) (string, error) {
	switch goos {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dir := filepath.Join(local, "Microsoft", "Windows", "Fonts")
			if ok, _ := DirExists(dir); ok {
				return dir, nil
			}
		}
		if windir := os.Getenv("windir"); windir != "" {
			dir := filepath.Join(windir, "Fonts")
			if ok, _ := DirExists(dir); ok {
				return dir, nil
			}
		}
		return "", errors.New("Cannot get user's font directory")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("Cannot get user's font directory")
		}
		return filepath.Join(home, "Library", "Fonts"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
			return filepath.Join(xdg, "fonts"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("Cannot get user's font directory")
		}
		return filepath.Join(home, ".local", "share", "fonts"), nil
	}
}

// IsInside reports whether path is a strict descendant of dir.
func IsInside(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// SubDirNames lists the immediate sub-directories of dir, sorted.
func SubDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
