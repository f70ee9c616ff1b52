// Package models contains the domain models for the application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies the booking channel that publishes a feed.
type Platform string

// Platform constants
const (
	PlatformAirbnb  Platform = "airbnb"
	PlatformVrbo    Platform = "vrbo"
	PlatformBooking Platform = "booking"
	PlatformDirect  Platform = "direct"
)

// Platforms lists every supported platform tag.
var Platforms = []Platform{PlatformAirbnb, PlatformVrbo, PlatformBooking, PlatformDirect}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform converts a user-supplied tag into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// PairKey identifies one (unit, platform) feed.
type PairKey struct {
	UnitID   string   `json:"unit_id"`
	Platform Platform `json:"platform"`
}

func (k PairKey) String() string {
	return k.UnitID + "/" + string(k.Platform)
}

// FeedPair is a registered calendar feed for one unit on one platform.
type FeedPair struct {
	UnitID          string     `json:"unit_id"`
	Platform        Platform   `json:"platform"`
	URL             string     `json:"url"`
	SyncIntervalMin int        `json:"sync_interval_min"`
	Enabled         bool       `json:"enabled"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	LastOutcome     *string    `json:"last_outcome,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Key returns the pair identity.
func (p FeedPair) Key() PairKey {
	return PairKey{UnitID: p.UnitID, Platform: p.Platform}
}

// Due reports whether the pair should be synced at now given its interval.
func (p FeedPair) Due(now time.Time, defaultInterval time.Duration) bool {
	if p.LastSyncAt == nil {
		return true
	}
	interval := time.Duration(p.SyncIntervalMin) * time.Minute
	if interval < time.Minute {
		interval = defaultInterval
	}
	return !p.LastSyncAt.Add(interval).After(now)
}

// FeedSnapshot is the last reconciled fingerprint of a pair's feed.
type FeedSnapshot struct {
	UnitID      string    `json:"unit_id"`
	Platform    Platform  `json:"platform"`
	Fingerprint string    `json:"fingerprint"`
	FetchedAt   time.Time `json:"fetched_at"`
}
