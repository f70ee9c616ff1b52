// Package syncer runs the feed synchronization pipeline for every registered
// (unit, platform) pair and records the outcome of each run.
package syncer

import "time"

// Lock backends.
const (
	LockBackendMemory   = "memory"
	LockBackendDatabase = "database"
)

// Config holds pipeline settings.
type Config struct {
	// PoolSize bounds how many pairs are synced at once.
	PoolSize int `mapstructure:"pool_size" default:"4"`
	// FetchTimeout aborts a single feed download.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" default:"30s"`
	// DefaultIntervalMin applies to pairs registered without an interval.
	DefaultIntervalMin int `mapstructure:"default_interval_min" default:"15"`
	// MaxFeedBytes caps the size of a feed body.
	MaxFeedBytes int64 `mapstructure:"max_feed_bytes" default:"5242880"`
	// Schedule is the cron spec of the tick that looks for due pairs.
	Schedule string `mapstructure:"schedule" default:"@every 1m"`
	// LockBackend is "memory" for a single instance or "database" when
	// several instances share one database.
	LockBackend string `mapstructure:"lock_backend" default:"memory"`
	// LockTTL bounds how long a database lease survives a crashed holder.
	LockTTL time.Duration `mapstructure:"lock_ttl" default:"5m"`
}

// DefaultInterval returns the fallback sync interval.
func (c Config) DefaultInterval() time.Duration {
	if c.DefaultIntervalMin <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.DefaultIntervalMin) * time.Minute
}
