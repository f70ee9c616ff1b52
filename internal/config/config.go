// Package config loads application settings from a .env file and the
// environment. Every key has a default declared on its struct tag, so an
// empty environment yields a runnable single-instance setup.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/booking-sync/backend/internal/api"
	"github.com/booking-sync/backend/internal/archive"
	"github.com/booking-sync/backend/internal/logger"
	"github.com/booking-sync/backend/internal/metrics"
	"github.com/booking-sync/backend/internal/storage"
	"github.com/booking-sync/backend/internal/syncer"
)

// Config holds all configuration for the application.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server api.Config `mapstructure:"server"`
	// Database holds configuration for the SQLite database.
	Database storage.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Sync holds configuration for the sync pipeline.
	Sync syncer.Config `mapstructure:"sync"`
	// Archive holds configuration for the raw feed archive.
	Archive archive.Config `mapstructure:"archive"`
	// Metrics holds configuration for Prometheus instrumentation.
	Metrics metrics.Config `mapstructure:"metrics"`
}

// LoadConfig loads configuration from environment variables and the .env
// file in dir, if present.
func LoadConfig(dir string) (*Config, error) {
	envPath := dir + "/.env"
	if dir == "" || dir == "." {
		envPath = ".env"
	}

	// Missing .env is normal in production.
	_ = godotenv.Overload(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")

	// SYNC_POOL_SIZE -> sync.pool_size
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	switch c.Sync.LockBackend {
	case syncer.LockBackendMemory, syncer.LockBackendDatabase:
	default:
		return fmt.Errorf("sync.lock_backend must be %q or %q, got %q",
			syncer.LockBackendMemory, syncer.LockBackendDatabase, c.Sync.LockBackend)
	}
	if c.Sync.PoolSize <= 0 {
		return fmt.Errorf("sync.pool_size must be positive, got %d", c.Sync.PoolSize)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archiving is enabled")
	}
	return nil
}

// bindValues walks the struct and registers every mapstructure key with its
// default tag so AutomaticEnv can resolve it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set, even when empty, to register the key for AutomaticEnv.
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
