// Package config loads and validates the flowcanvas configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/flowcanvas/errors"
)

// Defaults applied when a field is absent from the file and environment
const (
	DefaultServerAddr     = ":8080"
	DefaultNATSURL        = "nats://localhost:4222"
	DefaultHistoryLimit   = 50
	DefaultLayoutStrategy = "layered"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config is the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	NATS    NATSConfig    `yaml:"nats"`
	Editor  EditorConfig  `yaml:"editor"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NATSConfig holds the NATS connection settings
type NATSConfig struct {
	URL           string        `yaml:"url"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// EditorConfig holds the editor session defaults
type EditorConfig struct {
	LayoutStrategy   string `yaml:"layout_strategy"`
	HistoryLimit     int    `yaml:"history_limit"`
	LayoutCheckpoint bool   `yaml:"layout_checkpoint"`
}

// LoggingConfig holds the slog settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration populated with defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ShutdownTimeout: 10 * time.Second,
		},
		NATS: NATSConfig{
			URL:           DefaultNATSURL,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Editor: EditorConfig{
			LayoutStrategy:   DefaultLayoutStrategy,
			HistoryLimit:     DefaultHistoryLimit,
			LayoutCheckpoint: false,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads the configuration file, applies environment overrides, and
// validates the result. An empty path skips the file and uses defaults
// plus the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse YAML")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies FLOWCANVAS_* environment variables on top of
// file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLOWCANVAS_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FLOWCANVAS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FLOWCANVAS_LAYOUT_STRATEGY"); v != "" {
		cfg.Editor.LayoutStrategy = v
	}
	if v := os.Getenv("FLOWCANVAS_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Editor.HistoryLimit = n
		}
	}
	if v := os.Getenv("FLOWCANVAS_LAYOUT_CHECKPOINT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Editor.LayoutCheckpoint = b
		}
	}
	if v := os.Getenv("FLOWCANVAS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLOWCANVAS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: server.addr cannot be empty", errors.ErrInvalidConfig),
			"config", "Validate", "validate server")
	}
	if c.NATS.URL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.url cannot be empty", errors.ErrInvalidConfig),
			"config", "Validate", "validate nats")
	}
	if c.Editor.HistoryLimit < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: editor.history_limit must be at least 1, got %d",
				errors.ErrInvalidConfig, c.Editor.HistoryLimit),
			"config", "Validate", "validate editor")
	}
	switch c.Editor.LayoutStrategy {
	case "scatter", "layered":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown layout strategy %q", errors.ErrInvalidConfig, c.Editor.LayoutStrategy),
			"config", "Validate", "validate editor")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, c.Logging.Level),
			"config", "Validate", "validate logging")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, c.Logging.Format),
			"config", "Validate", "validate logging")
	}
	return nil
}
