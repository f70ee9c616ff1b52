package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2025-02-27")

	assert.Equal(t, "2025-03-01", d.AddDays(2).String())
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, -1, d.DaysUntil(d.AddDays(-1)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.Equal(t, d, MinDate(d, d.AddDays(3)))
	assert.Equal(t, d.AddDays(3), MaxDate(d, d.AddDays(3)))
}

func TestDate_DateOfKeepsLocalDay(t *testing.T) {
	tz := time.FixedZone("UTC-7", -7*3600)
	assert.Equal(t, "2025-09-17", DateOf(time.Date(2025, 9, 17, 22, 0, 0, 0, tz)).String())
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"Text", "2025-09-17", "2025-09-17"},
		{"Bytes", []byte("2025-09-17"), "2025-09-17"},
		{"Timestamp", "2025-09-17T00:00:00Z", "2025-09-17"},
		{"Time", time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC), "2025-09-17"},
		{"Null", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestDate_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		In  Date `json:"in"`
		Out Date `json:"out"`
	}{In: MustParseDate("2025-09-17")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"in":"2025-09-17","out":null}`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-09-20"`), &d))
	assert.Equal(t, "2025-09-20", d.String())
	assert.Error(t, json.Unmarshal([]byte(`"20/09/2025"`), &d))
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" Airbnb ")
	require.NoError(t, err)
	assert.Equal(t, PlatformAirbnb, p)

	_, err = ParsePlatform("expedia")
	assert.Error(t, err)
}

func TestFeedPair_Due(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	at := func(ago time.Duration) *time.Time {
		t := now.Add(-ago)
		return &t
	}

	tests := []struct {
		name string
		pair FeedPair
		want bool
	}{
		{"NeverSynced", FeedPair{SyncIntervalMin: 15}, true},
		{"WithinInterval", FeedPair{SyncIntervalMin: 15, LastSyncAt: at(10 * time.Minute)}, false},
		{"IntervalElapsed", FeedPair{SyncIntervalMin: 15, LastSyncAt: at(15 * time.Minute)}, true},
		{"DefaultInterval", FeedPair{LastSyncAt: at(20 * time.Minute)}, false},
		{"DefaultElapsed", FeedPair{LastSyncAt: at(31 * time.Minute)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pair.Due(now, 30*time.Minute))
		})
	}
}

func TestConflictSeverity_Rank(t *testing.T) {
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Zero(t, ConflictSeverity("").Rank())
}

func TestStageStatus_OperatorOwned(t *testing.T) {
	assert.True(t, StageConfirmed.OperatorOwned())
	assert.True(t, StageRejected.OperatorOwned())
	assert.False(t, StagePending.OperatorOwned())
	assert.False(t, StageSuperseded.OperatorOwned())
}
