package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowcanvas/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultNATSURL, cfg.NATS.URL)
	assert.Equal(t, DefaultLayoutStrategy, cfg.Editor.LayoutStrategy)
	assert.Equal(t, DefaultHistoryLimit, cfg.Editor.HistoryLimit)
	assert.False(t, cfg.Editor.LayoutCheckpoint)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  shutdown_timeout: 5s
nats:
  url: nats://nats.internal:4222
editor:
  layout_strategy: scatter
  history_limit: 100
  layout_checkpoint: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "nats://nats.internal:4222", cfg.NATS.URL)
	assert.Equal(t, "scatter", cfg.Editor.LayoutStrategy)
	assert.Equal(t, 100, cfg.Editor.HistoryLimit)
	assert.True(t, cfg.Editor.LayoutCheckpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
`)
	t.Setenv("FLOWCANVAS_SERVER_ADDR", ":7070")
	t.Setenv("FLOWCANVAS_NATS_URL", "nats://override:4222")
	t.Setenv("FLOWCANVAS_HISTORY_LIMIT", "25")
	t.Setenv("FLOWCANVAS_LAYOUT_CHECKPOINT", "true")
	t.Setenv("FLOWCANVAS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "nats://override:4222", cfg.NATS.URL)
	assert.Equal(t, 25, cfg.Editor.HistoryLimit)
	assert.True(t, cfg.Editor.LayoutCheckpoint)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }},
		{"empty nats url", func(c *Config) { c.NATS.URL = "" }},
		{"zero history limit", func(c *Config) { c.Editor.HistoryLimit = 0 }},
		{"unknown layout strategy", func(c *Config) { c.Editor.LayoutStrategy = "spiral" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}
