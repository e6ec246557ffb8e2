// Package daemon manages the focus daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
type Config struct {
	Profile   ProfileConfig   `toml:"profile"`
	API       APIConfig       `toml:"api"`
	Remote    RemoteConfig    `toml:"remote"`
	Store     StoreConfig     `toml:"store"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// ProfileConfig identifies the local user.
type ProfileConfig struct {
	User     string `toml:"user"`
	Timezone string `toml:"timezone"` // IANA name; "" = system local
	Catalog  string `toml:"catalog"`  // JSON catalog file; "" = built-in
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// RemoteConfig points at the remote progress authority.
type RemoteConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token"`
	Timeout        string `toml:"timeout"`
	ReplayInterval string `toml:"replay_interval"`
	MaxBackoff     string `toml:"max_backoff"`
}

// StoreConfig controls the durable local store.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"` // "info" or "debug"
	File  string `toml:"file"`  // "" = stderr
}

// TelemetryConfig controls metrics and health checks.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus"`
	HealthInterval string `toml:"health_interval"`
	MaxOutbox      int    `toml:"max_outbox"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := focusHome()
	return Config{
		Profile: ProfileConfig{
			User: "local",
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8787,
			CORSOrigins: []string{"*"},
		},
		Remote: RemoteConfig{
			Timeout:        "5s",
			ReplayInterval: "30s",
			MaxBackoff:     "10m",
		},
		Store: StoreConfig{
			Dir: homeDir,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus:     true,
			HealthInterval: "60s",
			MaxOutbox:      500,
		},
	}
}

// LoadConfig reads config from $FOCUS_HOME/config.toml, falling back to
// defaults, then applies $FOCUS_HOME/.env and the process environment.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(focusHome())
}

// LoadConfigFrom is LoadConfig rooted at dir.
func LoadConfigFrom(dir string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Store.Dir = dir

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overlays FOCUS_* variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("FOCUS_USER"); v != "" {
		cfg.Profile.User = v
	}
	if v := os.Getenv("FOCUS_TZ"); v != "" {
		cfg.Profile.Timezone = v
	}
	if v := os.Getenv("FOCUS_REMOTE_URL"); v != "" {
		cfg.Remote.Endpoint = v
		cfg.Remote.Enabled = true
	}
	if v := os.Getenv("FOCUS_REMOTE_TOKEN"); v != "" {
		cfg.Remote.Token = v
	}
	if v := os.Getenv("FOCUS_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FOCUS_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.Profile.User == "" {
		return fmt.Errorf("profile.user must not be empty")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Remote.Enabled && c.Remote.Endpoint == "" {
		return fmt.Errorf("remote.enabled requires remote.endpoint")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"remote.timeout":            c.Remote.Timeout,
		"remote.replay_interval":    c.Remote.ReplayInterval,
		"remote.max_backoff":        c.Remote.MaxBackoff,
		"telemetry.health_interval": c.Telemetry.HealthInterval,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Location resolves profile.timezone. Calendar days are taken in this zone.
func (c Config) Location() (*time.Location, error) {
	if c.Profile.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Profile.Timezone)
	if err != nil {
		return nil, fmt.Errorf("profile.timezone: %w", err)
	}
	return loc, nil
}

// SaveConfig writes the config to $FOCUS_HOME/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(focusHome(), cfg)
}

// SaveConfigTo writes the config to dir/config.toml.
func SaveConfigTo(dir string, cfg Config) error {
	path := filepath.Join(dir, "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// focusHome returns the focus data directory.
func focusHome() string {
	if env := os.Getenv("FOCUS_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".focus")
}

// FocusHome is exported for use by other packages.
func FocusHome() string {
	return focusHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
