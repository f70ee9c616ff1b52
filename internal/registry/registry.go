// Package registry reads the YAML file that declares which calendar feeds
// belong to which unit and loads it into the pair registry.
//
// A registry file looks like:
//
//	units:
//	  - id: cabin-7
//	    feeds:
//	      - platform: airbnb
//	        url: https://www.airbnb.com/calendar/ical/123.ics?s=secret
//	        interval_min: 15
//	      - platform: direct
//	        url: https://example.com/cabin-7.ics
//	        enabled: false
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/booking-sync/backend/internal/storage/models"
)

// FeedConfig is one feed of a unit.
type FeedConfig struct {
	Platform    string `yaml:"platform"`
	URL         string `yaml:"url"`
	IntervalMin int    `yaml:"interval_min,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// UnitConfig lists the feeds published for one unit.
type UnitConfig struct {
	ID    string       `yaml:"id"`
	Feeds []FeedConfig `yaml:"feeds"`
}

// File is the top-level registry document.
type File struct {
	Units []UnitConfig `yaml:"units"`
}

// Load reads and validates a registry file.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("registry path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates registry YAML. Unknown keys are rejected so
// typos do not silently drop a feed.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding registry: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every entry and reports all problems at once.
func (f *File) Validate() error {
	var errs []error
	seen := make(map[models.PairKey]bool)

	for i, u := range f.Units {
		unitID := strings.TrimSpace(u.ID)
		if unitID == "" {
			errs = append(errs, fmt.Errorf("units[%d]: id is required", i))
			continue
		}
		for j, feed := range u.Feeds {
			where := fmt.Sprintf("units[%d] (%s) feeds[%d]", i, unitID, j)
			p, err := models.ParsePlatform(feed.Platform)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
				continue
			}
			if strings.TrimSpace(feed.URL) == "" {
				errs = append(errs, fmt.Errorf("%s: url is required", where))
			}
			if feed.IntervalMin < 0 {
				errs = append(errs, fmt.Errorf("%s: interval_min must not be negative", where))
			}
			key := models.PairKey{UnitID: unitID, Platform: p}
			if seen[key] {
				errs = append(errs, fmt.Errorf("%s: duplicate feed for %s", where, key))
			}
			seen[key] = true
		}
	}
	return errors.Join(errs...)
}

// Pairs flattens the file into feed pairs. defaultInterval fills feeds that
// declare none.
func (f *File) Pairs(defaultIntervalMin int) []models.FeedPair {
	var pairs []models.FeedPair
	for _, u := range f.Units {
		for _, feed := range u.Feeds {
			// Validated already.
			p, _ := models.ParsePlatform(feed.Platform)
			interval := feed.IntervalMin
			if interval == 0 {
				interval = defaultIntervalMin
			}
			enabled := true
			if feed.Enabled != nil {
				enabled = *feed.Enabled
			}
			pairs = append(pairs, models.FeedPair{
				UnitID:          strings.TrimSpace(u.ID),
				Platform:        p,
				URL:             strings.TrimSpace(feed.URL),
				SyncIntervalMin: interval,
				Enabled:         enabled,
			})
		}
	}
	return pairs
}

// PairStore persists registered pairs.
type PairStore interface {
	Upsert(ctx context.Context, pair *models.FeedPair) error
}

// Import upserts every pair in the file and returns how many were written.
// Pairs absent from the file are left alone.
func Import(ctx context.Context, store PairStore, f *File, defaultIntervalMin int, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	n := 0
	for _, p := range f.Pairs(defaultIntervalMin) {
		if err := store.Upsert(ctx, &p); err != nil {
			return n, fmt.Errorf("importing %s: %w", p.Key(), err)
		}
		log.Info("feed pair registered",
			zap.String("unit_id", p.UnitID),
			zap.String("platform", string(p.Platform)),
			zap.Int("interval_min", p.SyncIntervalMin),
			zap.Bool("enabled", p.Enabled),
		)
		n++
	}
	return n, nil
}
