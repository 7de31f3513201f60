package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromTOML(t *testing.T, content string) (*Config, error) {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "pubcask.toml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	viper.Reset()
	viper.SetConfigFile(configFile)
	require.NoError(t, viper.ReadInConfig())

	return Load()
}

func TestConfig_Load_ValidBasicConfig(t *testing.T) {
	cfg, err := loadFromTOML(t, `
[server]
port = 9090
base_url = "https://pub.example.com/"
data_dir = "/var/lib/pubcask"

[storage]
backend = "fs"

[cache]
enabled = true
dir = "/var/cache/pubcask"

[publish]
session_ttl = "30m"
max_upload_size = "64MB"

[publish.rate_limit]
enabled = true
rate = 2.0
burst = 5
window = "30s"

[auth]
enabled = true
secret = "hunter2"

[logging]
level = "debug"
`)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	// Trailing slash is normalized away.
	assert.Equal(t, "https://pub.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "/var/lib/pubcask", cfg.Server.DataDir)
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/var/cache/pubcask", cfg.Cache.Dir)
	assert.Equal(t, 30*time.Minute, cfg.Publish.SessionTTLDur)
	assert.Equal(t, int64(64*1024*1024), cfg.Publish.MaxUploadBytes)
	assert.True(t, cfg.Publish.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Publish.RateLimit.Burst)
	assert.Equal(t, 30*time.Second, cfg.Publish.RateLimit.WindowDur)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "hunter2", cfg.Auth.Secret)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfig_Load_Defaults(t *testing.T) {
	cfg, err := loadFromTOML(t, "")
	require.NoError(t, err)

	assert.Equal(t, 4040, cfg.Server.Port)
	assert.Equal(t, "http://localhost:4040", cfg.Server.BaseURL)
	assert.Equal(t, "./data", cfg.Server.DataDir)
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Publish.SessionTTLDur)
	assert.Equal(t, int64(100*1024*1024), cfg.Publish.MaxUploadBytes)
	assert.False(t, cfg.Publish.RateLimit.Enabled)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfig_Load_RemoteBackend(t *testing.T) {
	cfg, err := loadFromTOML(t, `
[storage]
backend = "remote"
remote_url = "https://artifacts.example.com/pub"
remote_token = "tok"
`)
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Storage.Backend)
	assert.Equal(t, "https://artifacts.example.com/pub", cfg.Storage.RemoteURL)
	assert.Equal(t, "tok", cfg.Storage.RemoteToken)
}

func TestConfig_Load_RemoteBackendRequiresURL(t *testing.T) {
	_, err := loadFromTOML(t, `
[storage]
backend = "remote"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote_url is required")
}

func TestConfig_Load_RemoteURLMustBeFullURL(t *testing.T) {
	_, err := loadFromTOML(t, `
[storage]
backend = "remote"
remote_url = "artifacts.example.com"
`)
	require.Error(t, err)
}

func TestConfig_Load_UnknownBackend(t *testing.T) {
	_, err := loadFromTOML(t, `
[storage]
backend = "s3"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend must be one of")
}

func TestConfig_Load_HumanFriendlySessionTTL(t *testing.T) {
	cfg, err := loadFromTOML(t, `
[publish]
session_ttl = "2d"
`)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, cfg.Publish.SessionTTLDur)
}

func TestConfig_Load_InvalidMaxUploadSize(t *testing.T) {
	_, err := loadFromTOML(t, `
[publish]
max_upload_size = "lots"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_upload_size")
}

func TestConfig_Load_RateLimitRequiresWindow(t *testing.T) {
	_, err := loadFromTOML(t, `
[publish.rate_limit]
enabled = true
window = "nope"
`)
	require.Error(t, err)
}

func TestConfig_Load_AuthRequiresSecret(t *testing.T) {
	_, err := loadFromTOML(t, `
[auth]
enabled = true
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")
}
