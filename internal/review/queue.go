// Package review owns the staged-booking queue: it applies reconcile plans,
// keeps conflict flags current and records operator decisions.
package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/staging"
	"github.com/booking-sync/backend/internal/storage"
	"github.com/booking-sync/backend/internal/storage/models"
	"github.com/booking-sync/backend/internal/websocket"
)

// Queue coordinates the repositories behind the review queue.
type Queue struct {
	db           *storage.DB
	feeds        *storage.FeedRepository
	staged       *storage.StagedRepository
	reservations *storage.ReservationRepository
	events       *websocket.EventBroadcaster
	log          *zap.Logger
	now          func() time.Time
}

// NewQueue creates a review queue. events may be nil.
func NewQueue(db *storage.DB, events *websocket.EventBroadcaster, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		db:           db,
		feeds:        storage.NewFeedRepository(db),
		staged:       storage.NewStagedRepository(db),
		reservations: storage.NewReservationRepository(db),
		events:       events,
		log:          log,
		now:          time.Now,
	}
}

// Result is what one reconciliation wrote.
type Result struct {
	Plan staging.Plan
	// Conflicts is every conflict now recorded for the unit.
	Conflicts []models.ConflictRecord
	// PairConflicts are the conflicts involving this pair's pending records.
	PairConflicts []models.ConflictRecord
}

// Snapshot returns the last reconciled fingerprint for a pair.
func (q *Queue) Snapshot(ctx context.Context, key models.PairKey) (*models.FeedSnapshot, error) {
	return q.feeds.GetSnapshot(ctx, key)
}

// Reconcile stages a pair's parsed events. Plan, conflict flags and the new
// snapshot commit in one transaction; on error nothing is written.
func (q *Queue) Reconcile(ctx context.Context, key models.PairKey, events []models.BookingInterval, fingerprint string) (Result, error) {
	var res Result
	now := q.now().UTC()

	err := q.db.Transaction(ctx, func(tx *sql.Tx) error {
		existing, err := q.staged.ListByPair(ctx, tx, key)
		if err != nil {
			return err
		}

		res.Plan = staging.Reconcile(key, events, existing, now)
		if err := q.staged.ApplyPlan(ctx, tx, res.Plan); err != nil {
			return err
		}

		conflicts, err := q.refreshConflicts(ctx, tx, key.UnitID)
		if err != nil {
			return err
		}
		res.Conflicts = conflicts
		res.PairConflicts = staging.Involving(conflicts, res.Plan.RecordIDs())

		return q.feeds.SaveSnapshot(ctx, tx, models.FeedSnapshot{
			UnitID:      key.UnitID,
			Platform:    key.Platform,
			Fingerprint: fingerprint,
			FetchedAt:   now,
		})
	})
	if err != nil {
		return Result{}, fmt.Errorf("reconciling %s: %w", key, err)
	}
	return res, nil
}

// refreshConflicts recomputes a unit's conflicts from its pending staged
// records and active reservations and stores them.
func (q *Queue) refreshConflicts(ctx context.Context, tx storage.Queryable, unitID string) ([]models.ConflictRecord, error) {
	pending, err := q.staged.ListByUnit(ctx, tx, unitID, models.StagePending)
	if err != nil {
		return nil, err
	}
	confirmed, err := q.reservations.ListActiveByUnit(ctx, tx, unitID)
	if err != nil {
		return nil, err
	}

	conflicts := staging.DetectConflicts(unitID, pending, confirmed)
	if err := q.staged.ReplaceConflicts(ctx, tx, unitID, conflicts); err != nil {
		return nil, err
	}
	return conflicts, nil
}

// Confirm accepts a staged booking.
func (q *Queue) Confirm(ctx context.Context, id string) (*models.StagedRecord, error) {
	return q.decide(ctx, id, models.StageConfirmed)
}

// Reject dismisses a staged booking.
func (q *Queue) Reject(ctx context.Context, id string) (*models.StagedRecord, error) {
	return q.decide(ctx, id, models.StageRejected)
}

func (q *Queue) decide(ctx context.Context, id string, to models.StageStatus) (*models.StagedRecord, error) {
	var (
		rec      *models.StagedRecord
		previous models.StageStatus
	)

	err := q.db.Transaction(ctx, func(tx *sql.Tx) error {
		cur, err := q.staged.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		previous = cur.Status

		rec, err = q.staged.SetStatus(ctx, tx, id, to)
		if err != nil {
			return err
		}

		_, err = q.refreshConflicts(ctx, tx, rec.UnitID)
		return err
	})
	if err != nil {
		return nil, err
	}

	q.log.Info("staged booking reviewed",
		zap.String("id", rec.ID),
		zap.String("unit_id", rec.UnitID),
		zap.String("platform", string(rec.Platform)),
		zap.String("from", string(previous)),
		zap.String("to", string(rec.Status)),
	)
	q.events.BroadcastStagedStatusChanged(*rec, previous)
	return rec, nil
}

// Get returns one staged record.
func (q *Queue) Get(ctx context.Context, id string) (*models.StagedRecord, error) {
	return q.staged.Get(ctx, nil, id)
}

// List returns staged records matching the filter.
func (q *Queue) List(ctx context.Context, f storage.StagedFilter) ([]models.StagedRecord, error) {
	return q.staged.List(ctx, f)
}

// Conflicts returns the stored conflicts for a unit.
func (q *Queue) Conflicts(ctx context.Context, unitID string) ([]models.ConflictRecord, error) {
	return q.staged.ListConflicts(ctx, unitID)
}

// PendingCount returns the number of bookings awaiting review.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	return q.staged.CountByStatus(ctx, models.StagePending)
}
