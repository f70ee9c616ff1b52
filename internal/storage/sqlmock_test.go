package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/storage/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return Wrap(conn), mock
}

func TestSyncRunRepository_InsertRollsBackOnAlertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRunRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_runs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_alerts")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	run := &models.SyncRun{UnitID: "unit-1", Platform: models.PlatformAirbnb, StartedAt: t0, FinishedAt: t0, Outcome: models.OutcomeFailed}
	run.AddAlert(models.AlertError, "Feed fetch failed", "boom")

	err := repo.Insert(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepository_GetQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeedRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM feed_pairs WHERE unit_id = ? AND platform = ?")).
		WithArgs("unit-1", "airbnb").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Get(context.Background(), models.PairKey{UnitID: "unit-1", Platform: models.PlatformAirbnb})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRepository_AcquireError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db, 0)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_locks")).WillReturnError(errors.New("database is locked"))

	ok, err := repo.TryAcquire(context.Background(), models.PairKey{UnitID: "unit-1", Platform: models.PlatformAirbnb})
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
