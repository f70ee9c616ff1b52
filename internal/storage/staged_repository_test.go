package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/staging"
	"github.com/booking-sync/backend/internal/storage/models"
)

var testKey = models.PairKey{UnitID: "unit-1", Platform: models.PlatformAirbnb}

func TestStagedRepository_ApplyPlan(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStagedRepository(db)

	require.NoError(t, repo.ApplyPlan(ctx, nil, staging.Plan{
		Pair: testKey,
		Inserts: []models.StagedRecord{
			stagedRec("r1", "a", "2025-09-17", "2025-09-20"),
			stagedRec("r2", "b", "2025-10-01", "2025-10-03"),
			stagedRec("r3", "c", "2025-11-01", "2025-11-03"),
		},
	}))

	later := t0.Add(time.Hour)
	updated := stagedRec("r1", "a", "2025-09-17", "2025-09-22")
	updated.LastSeenAt, updated.UpdatedAt = later, later
	touched := stagedRec("r2", "b", "2025-10-01", "2025-10-03")
	touched.PhoneSuffix = "8772"
	touched.LastSeenAt = later
	gone := stagedRec("r3", "c", "2025-11-01", "2025-11-03")
	gone.Status, gone.UpdatedAt = models.StageSuperseded, later

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.ApplyPlan(ctx, tx, staging.Plan{
			Pair:       testKey,
			Updates:    []models.StagedRecord{updated},
			Touches:    []models.StagedRecord{touched},
			Supersedes: []models.StagedRecord{gone},
		})
	})
	require.NoError(t, err)

	recs, err := repo.ListByPair(ctx, nil, testKey)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "2025-09-22", recs[0].CheckOut.String())
	assert.Equal(t, models.StagePending, recs[0].Status)
	assert.True(t, t0.Equal(recs[0].FirstSeenAt))
	assert.Equal(t, "8772", recs[1].PhoneSuffix)
	assert.True(t, later.Equal(recs[1].LastSeenAt))
	assert.Equal(t, models.StageSuperseded, recs[2].Status)

	n, err := repo.CountByStatus(ctx, models.StagePending)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStagedRepository_ApplyPlanRespectsOperatorDecision(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStagedRepository(db)

	rec := stagedRec("r1", "a", "2025-09-17", "2025-09-20")
	require.NoError(t, repo.ApplyPlan(ctx, nil, staging.Plan{Pair: testKey, Inserts: []models.StagedRecord{rec}}))
	_, err := repo.SetStatus(ctx, nil, "r1", models.StageConfirmed)
	require.NoError(t, err)

	// A plan computed before the confirmation must not overwrite it.
	stale := stagedRec("r1", "a", "2025-09-17", "2025-09-25")
	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.ApplyPlan(ctx, tx, staging.Plan{Pair: testKey, Updates: []models.StagedRecord{stale}})
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := repo.Get(ctx, nil, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StageConfirmed, got.Status)
	assert.Equal(t, "2025-09-20", got.CheckOut.String())
}

func TestStagedRepository_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewStagedRepository(newTestDB(t))
	require.NoError(t, repo.ApplyPlan(ctx, nil, staging.Plan{Pair: testKey, Inserts: []models.StagedRecord{
		stagedRec("r1", "a", "2025-09-17", "2025-09-20"),
	}}))

	_, err := repo.SetStatus(ctx, nil, "r1", models.StagePending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := repo.SetStatus(ctx, nil, "r1", models.StageRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StageRejected, got.Status)

	_, err = repo.SetStatus(ctx, nil, "r1", models.StageConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = repo.SetStatus(ctx, nil, "missing", models.StageConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStagedRepository_ReplaceConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewStagedRepository(newTestDB(t))
	rec := stagedRec("r1", "a", "2025-09-17", "2025-09-20")
	require.NoError(t, repo.ApplyPlan(ctx, nil, staging.Plan{Pair: testKey, Inserts: []models.StagedRecord{rec}}))

	conflicts := staging.DetectConflicts("unit-1", []models.StagedRecord{rec}, []models.Reservation{{
		ID: "res-1", UnitID: "unit-1", Status: "confirmed",
		CheckIn: models.MustParseDate("2025-09-18"), CheckOut: models.MustParseDate("2025-09-19"),
	}})
	require.Len(t, conflicts, 1)
	require.NoError(t, repo.ReplaceConflicts(ctx, nil, "unit-1", conflicts))

	got, err := repo.Get(ctx, nil, "r1")
	require.NoError(t, err)
	require.True(t, got.HasConflict())
	assert.Equal(t, models.SeverityHigh, *got.ConflictSeverity)

	stored, err := repo.ListConflicts(ctx, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, conflicts, stored)

	require.NoError(t, repo.ReplaceConflicts(ctx, nil, "unit-1", nil))
	got, err = repo.Get(ctx, nil, "r1")
	require.NoError(t, err)
	assert.False(t, got.HasConflict())

	stored, err = repo.ListConflicts(ctx, "unit-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStagedRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewStagedRepository(newTestDB(t))

	other := stagedRec("r3", "z", "2025-08-01", "2025-08-02")
	other.UnitID = "unit-2"
	require.NoError(t, repo.ApplyPlan(ctx, nil, staging.Plan{Inserts: []models.StagedRecord{
		stagedRec("r1", "a", "2025-09-17", "2025-09-20"),
		stagedRec("r2", "b", "2025-09-01", "2025-09-03"),
		other,
	}}))
	_, err := repo.SetStatus(ctx, nil, "r2", models.StageConfirmed)
	require.NoError(t, err)

	all, err := repo.List(ctx, StagedFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID)

	pending, err := repo.List(ctx, StagedFilter{UnitID: "unit-1", Status: models.StagePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].ID)

	byUnit, err := repo.ListByUnit(ctx, nil, "unit-1", models.StagePending, models.StageConfirmed)
	require.NoError(t, err)
	assert.Len(t, byUnit, 2)

	limited, err := repo.List(ctx, StagedFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
