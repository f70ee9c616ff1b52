package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/booking-sync/backend/internal/storage/models"
)

// SyncRunRepository is the append-only ledger of pipeline runs and the
// alerts they raised.
type SyncRunRepository struct {
	BaseRepository
}

// NewSyncRunRepository creates a new sync run repository.
func NewSyncRunRepository(db *DB) *SyncRunRepository {
	return &SyncRunRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Insert records a run and its alerts in one transaction. Runs are never
// updated afterwards.
func (r *SyncRunRepository) Insert(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = GenerateID()
	}

	return r.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_runs (
				id, unit_id, platform, started_at, finished_at, outcome,
				new_count, changed_count, removed_count, conflict_count,
				events_found, fingerprint, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, run.UnitID, run.Platform, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Outcome,
			run.Counts.New, run.Counts.Changed, run.Counts.Removed, run.Counts.Conflicts,
			run.EventsFound, run.Fingerprint, run.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting sync run: %w", err)
		}

		for i := range run.Alerts {
			a := &run.Alerts[i]
			a.RunID = run.ID
			if a.UnitID == "" {
				a.UnitID = run.UnitID
			}
			if a.Platform == "" {
				a.Platform = run.Platform
			}
			if a.CreatedAt.IsZero() {
				a.CreatedAt = run.FinishedAt.UTC()
			}

			result, err := tx.ExecContext(ctx, `
				INSERT INTO sync_alerts (run_id, unit_id, platform, severity, title, message, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, a.RunID, a.UnitID, a.Platform, a.Severity, a.Title, a.Message, a.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting sync alert: %w", err)
			}
			a.ID, _ = result.LastInsertId()
		}
		return nil
	})
}

const syncRunColumns = `id, unit_id, platform, started_at, finished_at, outcome,
	new_count, changed_count, removed_count, conflict_count,
	events_found, fingerprint, error`

func scanSyncRun(s rowScanner) (models.SyncRun, error) {
	var run models.SyncRun
	err := s.Scan(
		&run.ID, &run.UnitID, &run.Platform, &run.StartedAt, &run.FinishedAt, &run.Outcome,
		&run.Counts.New, &run.Counts.Changed, &run.Counts.Removed, &run.Counts.Conflicts,
		&run.EventsFound, &run.Fingerprint, &run.Error,
	)
	return run, err
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	UnitID   string
	Platform models.Platform
	Limit    int
}

// ListRuns returns runs newest first. Alerts are not loaded.
func (r *SyncRunRepository) ListRuns(ctx context.Context, f RunFilter) ([]models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE 1 = 1`
	var args []any
	if f.UnitID != "" {
		query += ` AND unit_id = ?`
		args = append(args, f.UnitID)
	}
	if f.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, f.Platform)
	}
	query += ` ORDER BY finished_at DESC, id`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestPerUnit returns, for every unit with at least one run, its most
// recent run across platforms.
func (r *SyncRunRepository) LatestPerUnit(ctx context.Context) ([]models.UnitStatus, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT r.unit_id, r.platform, r.outcome, r.finished_at
		FROM sync_runs r
		WHERE r.id = (
			SELECT l.id FROM sync_runs l
			WHERE l.unit_id = r.unit_id
			ORDER BY l.finished_at DESC, l.id
			LIMIT 1
		)
		ORDER BY r.unit_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying latest runs: %w", err)
	}
	defer rows.Close()

	var out []models.UnitStatus
	for rows.Next() {
		var (
			s          models.UnitStatus
			finishedAt time.Time
		)
		if err := rows.Scan(&s.UnitID, &s.Platform, &s.LastOutcome, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning latest run: %w", err)
		}
		s.LastSyncAt = finishedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentAlerts returns the newest alerts across all runs.
func (r *SyncRunRepository) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, run_id, unit_id, platform, severity, title, message, created_at
		FROM sync_alerts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.RunID, &a.UnitID, &a.Platform, &a.Severity, &a.Title, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AlertsForRun returns the alerts raised by one run.
func (r *SyncRunRepository) AlertsForRun(ctx context.Context, runID string) ([]models.Alert, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, run_id, unit_id, platform, severity, title, message, created_at
		FROM sync_alerts WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.RunID, &a.UnitID, &a.Platform, &a.Severity, &a.Title, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
