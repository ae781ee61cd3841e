package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
	assert.False(t, cfg.Storage.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printqueue.yaml")
	body := `
server:
  port: 9090
  shutdown_timeout: 3s
storage:
  endpoint: minio:9000
  bucket: shop-images
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Storage.Enabled())
	assert.Equal(t, "shop-images", cfg.Storage.Bucket)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PRINTQUEUE_PORT", "7000")
	t.Setenv("PRINTQUEUE_DB_PATH", "/tmp/pq.db")
	t.Setenv("PRINTQUEUE_SECURE_COOKIE", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/pq.db", cfg.Database.Path)
	assert.False(t, cfg.Auth.SecureCookie)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"db path", func(c *Config) { c.Database.Path = "" }},
		{"token duration", func(c *Config) { c.Auth.TokenDuration = 0 }},
		{"login rate", func(c *Config) { c.Auth.LoginRatePerMinute = 0 }},
		{"bucket", func(c *Config) { c.Storage.Endpoint = "x:9000"; c.Storage.Bucket = "" }},
		{"workers", func(c *Config) { c.Webhooks.Workers = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
