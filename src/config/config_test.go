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
	t.Setenv(ConfigPathEnv, "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeBatch, c.Mode)
	assert.Equal(t, "./resources/clients.txt", c.Resources.Traders)
	assert.Equal(t, "./resources/orders.txt", c.Resources.Orders)
	assert.Equal(t, c.Resources.Traders, c.OutputPath())
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, time.Second, c.Server.RateLimitWindow)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exchange.yaml")
	yml := `
mode: serve
resources:
  traders: /data/clients.txt
  output: /data/out.txt
log:
  level: debug
server:
  port: 9000
  rate_limit_window: 2s
journal:
  enabled: true
  path: /data/journal.db
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("EXCHANGE_SERVER_PORT", "9100")
	t.Setenv("EXCHANGE_ENGINE_VERIFY_INVARIANTS", "true")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeServe, c.Mode)
	assert.Equal(t, "/data/clients.txt", c.Resources.Traders)
	assert.Equal(t, "/data/out.txt", c.OutputPath())
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 9100, c.Server.Port, "env overrides the file")
	assert.Equal(t, 2*time.Second, c.Server.RateLimitWindow)
	assert.True(t, c.Engine.VerifyInvariants)
	assert.True(t, c.Journal.Enabled)
	assert.Equal(t, 100, c.Server.RateLimitMax, "defaults survive a partial file")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	bad := c
	bad.Mode = "stream"
	assert.Error(t, bad.Validate())

	bad = c
	bad.Resources.Orders = ""
	assert.Error(t, bad.Validate())

	bad.Mode = ModeServe
	assert.NoError(t, bad.Validate(), "orders file is only needed for batch runs")

	bad = c
	bad.Journal.Enabled = true
	bad.Journal.Path = ""
	assert.Error(t, bad.Validate())

	bad = c
	bad.Engine.MaxDepth = 1
	assert.Error(t, bad.Validate())
}
