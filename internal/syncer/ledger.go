package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/metrics"
	"github.com/booking-sync/backend/internal/storage"
	"github.com/booking-sync/backend/internal/storage/models"
	"github.com/booking-sync/backend/internal/websocket"
)

// Ledger persists finished runs and fans them out to the status surfaces.
type Ledger struct {
	runs    *storage.SyncRunRepository
	feeds   *storage.FeedRepository
	staged  *storage.StagedRepository
	events  *websocket.EventBroadcaster
	metrics *metrics.SyncMetrics
	log     *zap.Logger
}

// NewLedger creates a ledger. events and m may be nil.
func NewLedger(db *storage.DB, events *websocket.EventBroadcaster, m *metrics.SyncMetrics, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		runs:    storage.NewSyncRunRepository(db),
		feeds:   storage.NewFeedRepository(db),
		staged:  storage.NewStagedRepository(db),
		events:  events,
		metrics: m,
		log:     log,
	}
}

// Record appends a run with its alerts and stamps the pair's sync status.
// It is written even when ctx was cancelled mid-run.
func (l *Ledger) Record(ctx context.Context, run *models.SyncRun) error {
	ctx = context.WithoutCancel(ctx)

	if err := l.runs.Insert(ctx, run); err != nil {
		return fmt.Errorf("recording run for %s: %w", run.Key(), err)
	}
	if err := l.feeds.UpdateSyncStatus(ctx, run.Key(), run.FinishedAt, run.Outcome); err != nil {
		return err
	}

	l.metrics.ObserveRun(*run)
	l.events.BroadcastSyncRun(*run)

	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("unit_id", run.UnitID),
		zap.String("platform", string(run.Platform)),
		zap.String("outcome", string(run.Outcome)),
		zap.Int("events", run.EventsFound),
		zap.Int("new", run.Counts.New),
		zap.Int("changed", run.Counts.Changed),
		zap.Int("removed", run.Counts.Removed),
		zap.Int("conflicts", run.Counts.Conflicts),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	}
	if run.Outcome == models.OutcomeFailed {
		l.log.Warn("sync run failed", append(fields, zap.String("error", run.Error))...)
	} else {
		l.log.Info("sync run finished", fields...)
	}
	return nil
}

// Status is the operator status surface.
type Status struct {
	Units        []models.UnitStatus `json:"units"`
	PendingCount int                 `json:"pending_count"`
	RecentAlerts []models.Alert      `json:"recent_alerts"`
}

// Status returns the last sync per unit, the review backlog and recent alerts.
func (l *Ledger) Status(ctx context.Context, alertLimit int) (*Status, error) {
	units, err := l.runs.LatestPerUnit(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := l.staged.CountByStatus(ctx, models.StagePending)
	if err != nil {
		return nil, err
	}
	alerts, err := l.runs.RecentAlerts(ctx, alertLimit)
	if err != nil {
		return nil, err
	}

	if units == nil {
		units = []models.UnitStatus{}
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return &Status{Units: units, PendingCount: pending, RecentAlerts: alerts}, nil
}

// Runs lists recent runs.
func (l *Ledger) Runs(ctx context.Context, f storage.RunFilter) ([]models.SyncRun, error) {
	return l.runs.ListRuns(ctx, f)
}
