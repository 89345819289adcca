// Package updater pulls new versions of the function catalog and i18n
// bundles and swaps them into the app data dir.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filethings/internal/apperr"
	"filethings/internal/archive"
	"filethings/internal/metrics"
	"filethings/internal/schema"
	"filethings/internal/semver"
)

const (
	KindFunctions = "functions"
	KindI18n      = "i18n"

	DefaultBaseURL = "https://releases.filethings.net"

	StatusOK      = "ok"
	StatusIgnored = "ignored"
)

// Pipeline states reported to a Reporter.
const (
	StateFetchingManifest = "fetching-manifest"
	StateComparing        = "comparing"
	StateUpToDate         = "up-to-date"
	StateFetchingArchive  = "fetching-archive"
	StateExtracting       = "extracting"
	StateSwapping         = "swapping"
	StateDone             = "done"
	StateFailed           = "failed"
)

// Fetcher downloads a URL to a file.
type Fetcher interface {
	Download(ctx context.Context, url, target string, headers map[string]string, resume bool) error
}

// Targets locates the directories the updater reads and writes.
type Targets interface {
	DownloadDir() string
	FunctionDirInAppData() string
	I18nDirInAppData() string
	AppVerDirname() string
}

// Reporter receives pipeline state changes. detail is a version or path
// when one is known.
type Reporter interface {
	Report(kind, state, detail string)
}

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Result is the outcome of an update run.
type Result struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Message string `json:"message"`
}

// Updater runs the fetch, compare, stage and swap pipeline.
type Updater struct {
	Targets  Targets
	Fetcher  Fetcher
	Extract  func(archivePath, targetDir string) error
	BaseURL  string
	Logger   Logger
	Metrics  metrics.Metrics
	Reporter Reporter

	running sync.Map
}

func (u *Updater) logger() Logger {
	if u.Logger == nil {
		return noopLogger{}
	}
	return u.Logger
}

func (u *Updater) report(kind, state, detail string) {
	if u.Reporter != nil {
		u.Reporter.Report(kind, state, detail)
	}
}

func (u *Updater) baseURL() string {
	if u.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(u.BaseURL, "/")
}

// ManifestURL returns the manifest endpoint for kind.
func (u *Updater) ManifestURL(kind string) string {
	return fmt.Sprintf("%s/res/%s/for-app-%s.json", u.baseURL(), kind, u.Targets.AppVerDirname())
}

// UpdateFunctions updates the function catalog.
func (u *Updater) UpdateFunctions(ctx context.Context) (Result, error) {
	return u.run(ctx, KindFunctions, u.Targets.FunctionDirInAppData(), "Functions updated")
}

// UpdateI18n updates the translation bundles.
func (u *Updater) UpdateI18n(ctx context.Context) (Result, error) {
	return u.run(ctx, KindI18n, u.Targets.I18nDirInAppData(), "I18N translations updated")
}

func (u *Updater) run(ctx context.Context, kind, targetDir, doneMessage string) (Result, error) {
	if _, busy := u.running.LoadOrStore(kind, true); busy {
		return Result{}, apperr.LockTimeout("Failed to acquire lock UPDATER_%s", strings.ToUpper(kind))
	}
	defer u.running.Delete(kind)

	res, err := u.pipeline(ctx, kind, targetDir, doneMessage)
	m := u.Metrics
	if m == nil {
		m = metrics.Noop{}
	}
	if err != nil {
		u.report(kind, StateFailed, err.Error())
		u.logger().Printf("Failed to update %s: %v", kind, err)
		m.IncUpdate(kind, "error")
		return Result{}, err
	}
	m.IncUpdate(kind, res.Status)
	return res, nil
}

type manifest struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

func (u *Updater) pipeline(ctx context.Context, kind, targetDir, doneMessage string) (Result, error) {
	logger := u.logger()
	downloads := u.Targets.DownloadDir()

	endpoint := u.ManifestURL(kind)
	logger.Printf("check %s from: %s", kind, endpoint)
	u.report(kind, StateFetchingManifest, endpoint)
	latest := filepath.Join(downloads, "latest-"+kind+".json")
	if err := u.Fetcher.Download(ctx, endpoint, latest, nil, false); err != nil {
		return Result{}, err
	}

	m, err := readManifest(latest)
	if err != nil {
		return Result{}, err
	}
	logger.Printf("found remote version: %s", m.Version)

	u.report(kind, StateComparing, m.Version)
	versionFile := filepath.Join(targetDir, "version.txt")
	current := readVersionFile(versionFile)
	if !Newer(m.Version, current) {
		logger.Printf("It's already the latest version: %s", current)
		u.report(kind, StateUpToDate, current)
		return Result{Status: StatusIgnored, Version: current, Message: "It's already the latest version"}, nil
	}
	if m.URL == "" {
		return Result{}, apperr.Format("Invalid %s.json, missing url", kind)
	}

	logger.Printf("Update the %s to version: %s", kind, m.Version)
	u.report(kind, StateFetchingArchive, m.Version)
	archivePath := filepath.Join(downloads, kind+".zip")
	if err := u.Fetcher.Download(ctx, m.URL, archivePath, nil, false); err != nil {
		return Result{}, err
	}

	u.report(kind, StateExtracting, archivePath)
	staging := filepath.Join(downloads, kind+"_new")
	if err := os.RemoveAll(staging); err != nil {
		return Result{}, apperr.IO(err, "clear staging dir")
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return Result{}, apperr.IO(err, "create staging dir")
	}
	extract := u.Extract
	if extract == nil {
		extract = archive.Unzip
	}
	if err := extract(archivePath, staging); err != nil {
		return Result{}, err
	}

	u.report(kind, StateSwapping, targetDir)
	if err := swapDir(filepath.Join(staging, kind), targetDir, logger); err != nil {
		return Result{}, err
	}

	if err := os.Remove(archivePath); err != nil {
		return Result{}, apperr.IO(err, "remove %s", archivePath)
	}
	if err := os.RemoveAll(staging); err != nil {
		return Result{}, apperr.IO(err, "remove %s", staging)
	}

	version := readVersionFile(versionFile)
	u.report(kind, StateDone, version)
	return Result{Status: StatusOK, Version: version, Message: doneMessage}, nil
}

// swapDir moves from into place at target. The previous target is set aside
// first and put back if the move fails.
func swapDir(from, target string, logger Logger) error {
	backup := target + ".old"
	if err := os.RemoveAll(backup); err != nil {
		return apperr.IO(err, "remove %s", backup)
	}
	hadPrevious := false
	if err := os.Rename(target, backup); err == nil {
		hadPrevious = true
	} else if !os.IsNotExist(err) {
		return apperr.IO(err, "Failed to move aside %s", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		logger.Printf("Failed to create the parent of %s: %v", target, err)
	}

	if err := os.Rename(from, target); err != nil {
		if hadPrevious {
			if rerr := os.Rename(backup, target); rerr != nil {
				logger.Printf("Failed to restore %s: %v", target, rerr)
			}
		}
		return apperr.IO(err, "Failed to rename dir: from %s to %s", from, target)
	}
	if hadPrevious {
		if err := os.RemoveAll(backup); err != nil {
			logger.Printf("Failed to remove %s: %v", backup, err)
		}
	}
	return nil
}

func readManifest(path string) (manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, apperr.IO(err, "Failed to read the latest data file: %s", path)
	}
	if err := schema.Validate(schema.Manifest, data); err != nil {
		return manifest{}, apperr.Wrap(apperr.KindFormat, err, "Failed to parse the data json")
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, apperr.Wrap(apperr.KindFormat, err, "Failed to parse the data json")
	}
	if m.Version == "" {
		m.Version = "0"
	}
	return m, nil
}

func readVersionFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "0"
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "0"
	}
	return v
}

// Newer reports whether remote is strictly newer than current. Dotted
// numeric versions compare numerically; anything else falls back to string
// order.
func Newer(remote, current string) bool {
	r, rerr := semver.Parse(remote)
	c, cerr := semver.Parse(current)
	if rerr == nil && cerr == nil {
		return semver.Cmp(r, c) > 0
	}
	return remote > current
}

// InstallerURL returns the Windows installer URL for version.
func (u *Updater) InstallerURL(version string) string {
	return fmt.Sprintf("%s/app/v%s/FileThings_%s_x64-setup.exe", u.baseURL(), version, version)
}

// DownloadWindowsInstaller fetches the installer for version into the
// downloads dir and returns its path.
func (u *Updater) DownloadWindowsInstaller(ctx context.Context, version string) (string, error) {
	if version == "" {
		return "", apperr.Param("`version` is required")
	}
	endpoint := u.InstallerURL(version)
	u.logger().Printf("download windows installer from: %s", endpoint)
	target := filepath.Join(u.Targets.DownloadDir(), "filethings-installer.exe")
	if err := u.Fetcher.Download(ctx, endpoint, target, nil, false); err != nil {
		return "", err
	}
	return target, nil
}

// ErrUnknownKind is returned by Update for kinds other than functions and i18n.
var ErrUnknownKind = errors.New("unknown update kind")

// Update dispatches to the pipeline for kind.
func (u *Updater) Update(ctx context.Context, kind string) (Result, error) {
	switch kind {
	case KindFunctions:
		return u.UpdateFunctions(ctx)
	case KindI18n:
		return u.UpdateI18n(ctx)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}
