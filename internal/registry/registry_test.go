package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/registry"
	"github.com/booking-sync/backend/internal/storage/models"
)

const sample = `
units:
  - id: cabin-7
    feeds:
      - platform: airbnb
        url: https://www.airbnb.com/calendar/ical/123.ics?s=secret
        interval_min: 30
      - platform: Direct
        url: https://example.com/cabin-7.ics
        enabled: false
  - id: loft-2
    feeds:
      - platform: vrbo
        url: https://www.vrbo.com/icalendar/abc.ics
`

type fakeStore struct {
	pairs []models.FeedPair
	err   error
}

func (s *fakeStore) Upsert(_ context.Context, p *models.FeedPair) error {
	if s.err != nil {
		return s.err
	}
	s.pairs = append(s.pairs, *p)
	return nil
}

func TestParse(t *testing.T) {
	f, err := registry.Parse([]byte(sample))
	require.NoError(t, err)

	pairs := f.Pairs(15)
	require.Len(t, pairs, 3)

	assert.Equal(t, models.PairKey{UnitID: "cabin-7", Platform: models.PlatformAirbnb}, pairs[0].Key())
	assert.Equal(t, 30, pairs[0].SyncIntervalMin)
	assert.True(t, pairs[0].Enabled)

	assert.Equal(t, models.PlatformDirect, pairs[1].Platform)
	assert.False(t, pairs[1].Enabled)
	assert.Equal(t, 15, pairs[1].SyncIntervalMin)

	assert.Equal(t, "loft-2", pairs[2].UnitID)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "UnknownPlatform",
			yaml: "units:\n  - id: a\n    feeds:\n      - platform: expedia\n        url: https://x\n",
			want: "unknown platform",
		},
		{
			name: "MissingURL",
			yaml: "units:\n  - id: a\n    feeds:\n      - platform: airbnb\n",
			want: "url is required",
		},
		{
			name: "MissingUnitID",
			yaml: "units:\n  - feeds: []\n",
			want: "id is required",
		},
		{
			name: "Duplicate",
			yaml: "units:\n  - id: a\n    feeds:\n      - {platform: airbnb, url: https://x}\n      - {platform: airbnb, url: https://y}\n",
			want: "duplicate feed",
		},
		{
			name: "UnknownKey",
			yaml: "units:\n  - id: a\n    feedz: []\n",
			want: "decoding registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAndImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := registry.Load(path)
	require.NoError(t, err)

	store := &fakeStore{}
	n, err := registry.Import(context.Background(), store, f, 15, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, store.pairs, 3)
}

func TestImport_StopsOnError(t *testing.T) {
	f, err := registry.Parse([]byte(sample))
	require.NoError(t, err)

	store := &fakeStore{err: errors.New("disk full")}
	n, err := registry.Import(context.Background(), store, f, 15, nil)
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "cabin-7/airbnb")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := registry.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
