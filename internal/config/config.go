package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/airwaves/internal/catalog"
)

const (
	DefaultVolume         = 80
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 15 * time.Second
)

type Config struct {
	Icons         string `koanf:"icons"`         // "nerd", "unicode", or "none"
	Volume        int    `koanf:"volume"`        // initial volume, 0-100
	Notifications *bool  `koanf:"notifications"` // desktop notification on failure (default: true)

	// Stations replace the built-in catalog when non-empty.
	Stations []StationConfig `koanf:"stations"`

	HTTP HTTPConfig `koanf:"http"`
	Log  LogConfig  `koanf:"log"`
}

// StationConfig is one [[stations]] entry.
type StationConfig struct {
	Name string `koanf:"name"`
	URI  string `koanf:"uri"`
}

// HTTPConfig holds stream transport settings.
type HTTPConfig struct {
	UserAgent      string        `koanf:"user_agent"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"` // e.g. "10s"
	ReadTimeout    time.Duration `koanf:"read_timeout"`    // until response headers
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"` // zerolog level name (default: "info")
	File  string `koanf:"file"`  // default: $XDG_STATE_HOME/airwaves/airwaves.log
}

func Load() (*Config, error) {
	return load(getConfigPaths())
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	// Last existing file wins.
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Volume: DefaultVolume,
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Volume < 0 || cfg.Volume > 100 {
		cfg.Volume = DefaultVolume
	}
	if cfg.HTTP.ConnectTimeout <= 0 {
		cfg.HTTP.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = DefaultReadTimeout
	}
	cfg.HTTP.UserAgent = strings.TrimSpace(cfg.HTTP.UserAgent)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/airwaves/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "airwaves", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// NotificationsEnabled reports whether failures raise desktop notifications.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications == nil || *c.Notifications
}

// VolumeLevel returns Volume as a 0.0-1.0 level.
func (c *Config) VolumeLevel() float64 {
	return float64(c.Volume) / 100
}

// Catalog builds the station catalog. With no stations configured it is the
// built-in list.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Stations) == 0 {
		return catalog.Default(), nil
	}
	sources := make([]catalog.Source, len(c.Stations))
	for i, s := range c.Stations {
		sources[i] = catalog.Source{Name: s.Name, URI: s.URI}
	}
	return catalog.New(sources...)
}
