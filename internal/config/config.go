package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the service settings file kept in the app data dir.
const SettingsFileName = "filethings.yaml"

// Settings captures the service-level configuration.
type Settings struct {
	Version      int            `yaml:"version"`
	AppVersion   string         `yaml:"app_version,omitempty"`
	Debug        *bool          `yaml:"debug,omitempty"`
	Listen       string         `yaml:"listen"`
	ReleaseHost  string         `yaml:"release_host"`
	ResourcesDir string         `yaml:"resources_dir,omitempty"`
	Download     DownloadConfig `yaml:"download"`
	Metrics      MetricsConfig  `yaml:"metrics"`
}

// DownloadConfig tunes the HTTP client used for downloads.
type DownloadConfig struct {
	TimeoutSec int    `yaml:"timeout_s"`
	UserAgent  string `yaml:"user_agent"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// DebugEnabled returns the effective debug flag.
func (s Settings) DebugEnabled() bool {
	if s.Debug == nil {
		return false
	}
	return *s.Debug
}

// MetricsEnabled returns the effective metrics flag, on by default.
func (s Settings) MetricsEnabled() bool {
	if s.Metrics.Enabled == nil {
		return true
	}
	return *s.Metrics.Enabled
}

// DefaultSettings returns the baseline settings.
func DefaultSettings() Settings {
	return Settings{
		Version:     1,
		Listen:      "127.0.0.1:47321",
		ReleaseHost: "releases.filethings.net",
		Download: DownloadConfig{
			TimeoutSec: 0,
			UserAgent:  "filethings/1.0",
		},
		Metrics: MetricsConfig{Enabled: boolPtr(true)},
	}
}

// LoadSettings reads the YAML settings from disk if present, otherwise
// returns the defaults.
func LoadSettings(path string) (Settings, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s := DefaultSettings()
			s.ApplyDefaults()
			return s, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(contents, &s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	s.ApplyDefaults()
	return s, nil
}

// ApplyDefaults fills fields the YAML left empty.
func (s *Settings) ApplyDefaults() {
	defaults := DefaultSettings()

	if s.Version == 0 {
		s.Version = defaults.Version
	}
	if strings.TrimSpace(s.Listen) == "" {
		s.Listen = defaults.Listen
	}
	if strings.TrimSpace(s.ReleaseHost) == "" {
		s.ReleaseHost = defaults.ReleaseHost
	}
	s.ReleaseHost = strings.TrimSuffix(strings.TrimPrefix(s.ReleaseHost, "https://"), "/")
	if s.Download.UserAgent == "" {
		s.Download.UserAgent = defaults.Download.UserAgent
	}
	if s.Download.TimeoutSec < 0 {
		s.Download.TimeoutSec = 0
	}
	if s.Metrics.Enabled == nil {
		s.Metrics.Enabled = boolPtr(true)
	}
}

// Marshal returns the YAML encoding of the settings.
func (s Settings) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}
