package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// An explicit path that does not exist is an error.
	require.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7887", cfg.Server.Listen)
	assert.Equal(t, "custom", cfg.Plan)
	assert.True(t, cfg.Pricing.Offline)
	assert.NotEmpty(t, cfg.Logs.Roots)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logs:
  roots:
    - /srv/claude-logs
server:
  listen: ":9000"
plan: max5x
timezone: UTC
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/claude-logs"}, cfg.Logs.Roots)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "max5x", cfg.Plan)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	require.NotNil(t, cfg.NewLogger())
}

func TestLocationErrors(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	_, err := cfg.Location()
	require.Error(t, err)

	cfg.Timezone = ""
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
