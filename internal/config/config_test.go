package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 20, cfg.Server.AlertLimit)
	assert.Equal(t, "./data/booking-sync.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Sync.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.Sync.FetchTimeout)
	assert.Equal(t, 15, cfg.Sync.DefaultIntervalMin)
	assert.Equal(t, int64(5<<20), cfg.Sync.MaxFeedBytes)
	assert.Equal(t, "memory", cfg.Sync.LockBackend)
	assert.Equal(t, 5*time.Minute, cfg.Sync.LockTTL)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "booking-feeds", cfg.Archive.Bucket)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SYNC_POOL_SIZE", "8")
	t.Setenv("SYNC_FETCH_TIMEOUT", "10s")
	t.Setenv("ARCHIVE_ENABLED", "true")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Sync.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.Sync.FetchTimeout)
	assert.True(t, cfg.Archive.Enabled)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	// Registered so the values written by the .env loader are restored.
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("SYNC_LOCK_BACKEND", "")

	dir := t.TempDir()
	env := "DATABASE_PATH=/var/lib/booking-sync/sync.db\nSYNC_LOCK_BACKEND=database\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/booking-sync/sync.db", cfg.Database.Path)
	assert.Equal(t, "database", cfg.Sync.LockBackend)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"LockBackend", "SYNC_LOCK_BACKEND", "redis"},
		{"PoolSize", "SYNC_POOL_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.LoadConfig(t.TempDir())
			assert.Error(t, err)
		})
	}
}
