package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MAX_SESSION_MINUTES", "")
	cfg := FromEnv()
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 1, cfg.MinSessionMins)
	assert.Equal(t, 10, cfg.MaxSessionMins)
	assert.Equal(t, "Campus-Net-01", cfg.NetworkFallback)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 10, cfg.LoginPerMin)
	assert.Equal(t, 20, cfg.ScansPerMin)
	assert.Equal(t, 400, cfg.QRSize)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("ACCESS_TTL", "5m")
	t.Setenv("MAX_SESSION_MINUTES", "30")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("REFRESH_TTL", "forever")

	cfg := FromEnv()
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 30, cfg.MaxSessionMins)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ADMIN_USERNAME=dean\nHTTP_PORT=9999\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("ADMIN_USERNAME", "")
	require.NoError(t, os.Unsetenv("ADMIN_USERNAME"))

	cfg := Load()
	assert.Equal(t, "dean", cfg.AdminUsername)
	assert.Equal(t, "7000", cfg.HTTPPort)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, App{Timezone: "Nowhere/Atlantis"}.Location())
	assert.Equal(t, time.Local, App{Timezone: "Local"}.Location())
}

func TestCloudinaryEnabled(t *testing.T) {
	assert.False(t, App{CloudinaryCloudName: "demo"}.CloudinaryEnabled())
	assert.True(t, App{CloudinaryCloudName: "demo", CloudinaryAPIKey: "k", CloudinaryAPISecret: "s"}.CloudinaryEnabled())
}

func TestStoreDSN(t *testing.T) {
	cfg := App{StoreBackend: "sqlite", SQLitePath: "var/st.db", DatabaseURL: "postgres://x"}
	assert.Equal(t, "var/st.db", cfg.StoreDSN())
	cfg.StoreBackend = "postgres"
	assert.Equal(t, "postgres://x", cfg.StoreDSN())
}
