package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "cybervpn.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Subscription.FetchTimeout)
	assert.Equal(t, 1440, cfg.Subscription.DefaultIntervalMinutes)
	assert.Equal(t, "cybervpn", cfg.Share.Scheme)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/test.db
subscription:
  fetch_timeout: 10s
  default_interval_minutes: 60
  proxy: socks5://127.0.0.1:9050
share:
  scheme: myvpn
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Second, cfg.Subscription.FetchTimeout)
	assert.Equal(t, 60, cfg.Subscription.DefaultIntervalMinutes)
	assert.Equal(t, "socks5://127.0.0.1:9050", cfg.Subscription.Proxy)
	assert.Equal(t, "myvpn", cfg.Share.Scheme)

	// Untouched sections keep their defaults.
	assert.Equal(t, "http://api.ipify.org", cfg.Probe.EchoURL)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
subscription:
  default_interval_minutes: -5
  fetch_timeout: 0s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1440, cfg.Subscription.DefaultIntervalMinutes)
	assert.Equal(t, 30*time.Second, cfg.Subscription.FetchTimeout)
}
