package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/storage/models"
)

func TestSyncRunRepository_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRunRepository(newTestDB(t))

	first := &models.SyncRun{
		UnitID: "unit-1", Platform: models.PlatformAirbnb,
		StartedAt: t0, FinishedAt: t0.Add(time.Second),
		Outcome: models.OutcomeUpdated,
		Counts:  models.SyncCounts{New: 2},
	}
	first.AddAlert(models.AlertWarning, "Pending booking removed from feed", "gone")
	require.NoError(t, repo.Insert(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.NotZero(t, first.Alerts[0].ID)

	second := &models.SyncRun{
		UnitID: "unit-1", Platform: models.PlatformVrbo,
		StartedAt: t0.Add(time.Minute), FinishedAt: t0.Add(time.Minute + time.Second),
		Outcome: models.OutcomeFailed, Error: "status 500",
	}
	second.AddAlert(models.AlertError, "Feed fetch failed", "status 500")
	require.NoError(t, repo.Insert(ctx, second))

	other := &models.SyncRun{
		UnitID: "unit-2", Platform: models.PlatformDirect,
		StartedAt: t0, FinishedAt: t0, Outcome: models.OutcomeUnchanged,
	}
	require.NoError(t, repo.Insert(ctx, other))

	latest, err := repo.LatestPerUnit(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "unit-1", latest[0].UnitID)
	assert.Equal(t, models.PlatformVrbo, latest[0].Platform)
	assert.Equal(t, models.OutcomeFailed, latest[0].LastOutcome)
	assert.Equal(t, models.OutcomeUnchanged, latest[1].LastOutcome)

	alerts, err := repo.RecentAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Feed fetch failed", alerts[0].Title)
	assert.Equal(t, second.ID, alerts[0].RunID)

	runs, err := repo.ListRuns(ctx, RunFilter{UnitID: "unit-1"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, 2, runs[1].Counts.New)

	runAlerts, err := repo.AlertsForRun(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, runAlerts, 1)
	assert.Equal(t, models.PlatformAirbnb, runAlerts[0].Platform)
}
