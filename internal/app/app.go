// Package app assembles the long-lived services shared by the RPC server,
// the one-shot CLI commands and the command dispatcher.
package app

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"filethings/internal/archive"
	"filethings/internal/buildinfo"
	"filethings/internal/config"
	"filethings/internal/download"
	"filethings/internal/functions"
	"filethings/internal/logx"
	"filethings/internal/metrics"
	"filethings/internal/paths"
	"filethings/internal/shell"
	"filethings/internal/tools"
	"filethings/internal/updater"
)

// Services is the process-wide state. It is created once at startup and
// read concurrently afterwards; the mutable parts guard themselves.
type Services struct {
	Settings   config.Settings
	Paths      *paths.Resolver
	Stores     *config.Stores
	Files      *functions.FileRegistry
	Tools      *functions.ToolRegistry
	Loader     functions.Loader
	Prober     *tools.Prober
	Downloader *download.Downloader
	Updater    *updater.Updater
	Runner     shell.Runner
	Log        *logx.Logger
	Metrics    metrics.Metrics
	Debug      bool
}

// Options controls Open.
type Options struct {
	DataDir string
	Debug   bool
	Stderr  io.Writer
	// Metrics is used instead of a fresh Prometheus collector when set.
	Metrics metrics.Metrics
}

// Open loads settings from the app data dir, starts the rotating logger and
// wires every service. Config stores and registries are loaded; failures
// there are logged and never abort startup.
func Open(opts Options) (*Services, io.Closer, error) {
	root, err := paths.AppDataRoot(opts.DataDir)
	if err != nil {
		return nil, nil, err
	}
	settings, err := config.LoadSettings(filepath.Join(root, config.SettingsFileName))
	if err != nil {
		return nil, nil, err
	}
	debug := opts.Debug || settings.DebugEnabled()

	appVersion := settings.AppVersion
	if appVersion == "" {
		appVersion = buildinfo.Version
	}
	resolver, err := paths.New(opts.DataDir, settings, appVersion)
	if err != nil {
		return nil, nil, err
	}

	logger, closer, err := logx.New(resolver.LogsDir(), debug, opts.Stderr)
	if err != nil {
		return nil, nil, err
	}

	m := opts.Metrics
	if m == nil {
		if settings.MetricsEnabled() {
			m = metrics.NewProm("filethings")
		} else {
			m = metrics.Noop{}
		}
	}

	svc := Assemble(settings, resolver, logger, m, shell.CmdRunner{})
	svc.Debug = debug
	logger.Info("app", "starting", "version", appVersion, "app_data", resolver.AppDataDir(), "debug", debug)

	if err := svc.Stores.LoadAll(); err != nil {
		logger.Warn("config", "load failed", "err", err)
	}
	svc.Reload()
	return svc, closer, nil
}

// Assemble wires services around an existing resolver and logger. It does
// not touch the filesystem.
func Assemble(settings config.Settings, resolver *paths.Resolver, logger *logx.Logger, m metrics.Metrics, runner shell.Runner) *Services {
	if logger == nil {
		logger = logx.Discard()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	toolReg := functions.NewToolRegistry()
	downloader := download.New(
		time.Duration(settings.Download.TimeoutSec)*time.Second,
		settings.Download.UserAgent,
		logger,
	)
	baseURL := ""
	if settings.ReleaseHost != "" {
		baseURL = "https://" + settings.ReleaseHost
	}

	return &Services{
		Settings: settings,
		Paths:    resolver,
		Stores:   config.NewStores(resolver.AppDataDir(), logger),
		Files:    functions.NewFileRegistry(),
		Tools:    toolReg,
		Loader: functions.Loader{
			Tree: resolver,
			Env: functions.Env{
				Platform:   functions.CurrentPlatform(),
				AppVersion: resolver.AppVersion(),
				AppDataDir: resolver.AppDataDir(),
			},
			Logger: logger,
		},
		Prober: &tools.Prober{
			Registry: toolReg,
			Runner:   runner,
			Metrics:  m,
			Logger:   logger,
		},
		Downloader: downloader,
		Updater: &updater.Updater{
			Targets: resolver,
			Fetcher: downloader,
			Extract: archive.Unzip,
			BaseURL: baseURL,
			Logger:  logger,
			Metrics: m,
		},
		Runner:  runner,
		Log:     logger,
		Metrics: m,
		Debug:   settings.DebugEnabled(),
	}
}

// ReloadFunctions rebuilds the file function registry.
func (s *Services) ReloadFunctions() (int, error) {
	return s.Loader.LoadFileFunctions(s.Files)
}

// ReloadTools rebuilds the tool registry.
func (s *Services) ReloadTools() (int, error) {
	return s.Loader.LoadTools(s.Tools)
}

// Reload rebuilds both registries, logging failures.
func (s *Services) Reload() {
	if _, err := s.ReloadFunctions(); err != nil {
		s.Log.Error("functions", "load file functions failed", "err", err)
	}
	if _, err := s.ReloadTools(); err != nil {
		s.Log.Error("functions", "load tools failed", "err", err)
	}
}

// AppVersion returns the version descriptors and the updater are filtered
// against.
func (s *Services) AppVersion() string {
	return s.Paths.AppVersion()
}

// ProbeTools checks every registered tool with a per-tool timeout.
func (s *Services) ProbeTools(ctx context.Context, perTool time.Duration) ([]tools.Status, error) {
	return s.Prober.ProbeAll(ctx, perTool)
}
