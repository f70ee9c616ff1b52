package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/booking-sync/backend/internal/staging"
	"github.com/booking-sync/backend/internal/storage/models"
)

// StagedRepository provides data access for the review queue and the
// conflicts computed over it.
type StagedRepository struct {
	BaseRepository
}

// NewStagedRepository creates a new staged booking repository.
func NewStagedRepository(db *DB) *StagedRepository {
	return &StagedRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// StagedFilter narrows List results. Zero fields match everything.
type StagedFilter struct {
	UnitID   string
	Platform models.Platform
	Status   models.StageStatus
	Limit    int
}

const stagedColumns = `id, unit_id, platform, external_uid, check_in, check_out,
	guest_label, phone_suffix, summary, status, conflict_severity,
	first_seen_at, last_seen_at, updated_at`

func scanStaged(s rowScanner) (models.StagedRecord, error) {
	var (
		r        models.StagedRecord
		severity sql.NullString
	)
	if err := s.Scan(
		&r.ID, &r.UnitID, &r.Platform, &r.UID, &r.CheckIn, &r.CheckOut,
		&r.GuestLabel, &r.PhoneSuffix, &r.Summary, &r.Status, &severity,
		&r.FirstSeenAt, &r.LastSeenAt, &r.UpdatedAt,
	); err != nil {
		return r, err
	}
	r.IsReservation = true
	if severity.Valid {
		sev := models.ConflictSeverity(severity.String)
		r.ConflictSeverity = &sev
	}
	return r, nil
}

func (r *StagedRepository) query(ctx context.Context, q Queryable, query string, args ...any) ([]models.StagedRecord, error) {
	rows, err := r.q(q).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying staged bookings: %w", err)
	}
	defer rows.Close()

	var records []models.StagedRecord
	for rows.Next() {
		rec, err := scanStaged(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning staged booking: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListByPair returns every staged record for a pair, in any status.
func (r *StagedRepository) ListByPair(ctx context.Context, q Queryable, key models.PairKey) ([]models.StagedRecord, error) {
	return r.query(ctx, q, `
		SELECT `+stagedColumns+`
		FROM staged_bookings
		WHERE unit_id = ? AND platform = ?
		ORDER BY external_uid
	`, key.UnitID, key.Platform)
}

// ListByUnit returns a unit's staged records across platforms in the given statuses.
func (r *StagedRepository) ListByUnit(ctx context.Context, q Queryable, unitID string, statuses ...models.StageStatus) ([]models.StagedRecord, error) {
	query := `SELECT ` + stagedColumns + ` FROM staged_bookings WHERE unit_id = ?`
	args := []any{unitID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY check_in, id`
	return r.query(ctx, q, query, args...)
}

// Get retrieves a staged record by id.
func (r *StagedRepository) Get(ctx context.Context, q Queryable, id string) (*models.StagedRecord, error) {
	row := r.q(q).QueryRowContext(ctx, `SELECT `+stagedColumns+` FROM staged_bookings WHERE id = ?`, id)
	rec, err := scanStaged(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("staged booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying staged booking: %w", err)
	}
	return &rec, nil
}

// List returns staged records matching the filter, soonest check-in first.
func (r *StagedRepository) List(ctx context.Context, f StagedFilter) ([]models.StagedRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.UnitID != "" {
		where = append(where, "unit_id = ?")
		args = append(args, f.UnitID)
	}
	if f.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT ` + stagedColumns + ` FROM staged_bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY check_in, unit_id, platform, external_uid`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return r.query(ctx, nil, query, args...)
}

// CountByStatus returns the number of staged records in a status.
func (r *StagedRepository) CountByStatus(ctx context.Context, status models.StageStatus) (int, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM staged_bookings WHERE status = ?`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting staged bookings: %w", err)
	}
	return n, nil
}

// ApplyPlan writes a reconcile plan. Every update is guarded on the status
// the plan was computed from, so an operator decision committed in between
// aborts the transaction instead of being overwritten.
func (r *StagedRepository) ApplyPlan(ctx context.Context, q Queryable, plan staging.Plan) error {
	db := r.q(q)

	for _, rec := range plan.Inserts {
		_, err := db.ExecContext(ctx, `
			INSERT INTO staged_bookings (
				id, unit_id, platform, external_uid, check_in, check_out,
				guest_label, phone_suffix, summary, status,
				first_seen_at, last_seen_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID, rec.UnitID, rec.Platform, rec.UID, rec.CheckIn, rec.CheckOut,
			rec.GuestLabel, rec.PhoneSuffix, rec.Summary, models.StagePending,
			rec.FirstSeenAt, rec.LastSeenAt, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting staged booking %s: %w", rec.UID, err)
		}
	}

	for _, rec := range plan.Updates {
		result, err := db.ExecContext(ctx, `
			UPDATE staged_bookings SET
				check_in = ?, check_out = ?, guest_label = ?, phone_suffix = ?, summary = ?,
				status = 'pending', last_seen_at = ?, updated_at = ?
			WHERE id = ? AND status IN ('pending', 'superseded')
		`,
			rec.CheckIn, rec.CheckOut, rec.GuestLabel, rec.PhoneSuffix, rec.Summary,
			rec.LastSeenAt, rec.UpdatedAt, rec.ID,
		)
		if err := guarded(result, err, "updating", rec); err != nil {
			return err
		}
	}

	for _, rec := range plan.Touches {
		result, err := db.ExecContext(ctx, `
			UPDATE staged_bookings SET
				guest_label = ?, phone_suffix = ?, summary = ?, last_seen_at = ?
			WHERE id = ? AND status = 'pending'
		`, rec.GuestLabel, rec.PhoneSuffix, rec.Summary, rec.LastSeenAt, rec.ID)
		if err := guarded(result, err, "touching", rec); err != nil {
			return err
		}
	}

	for _, rec := range plan.Supersedes {
		result, err := db.ExecContext(ctx, `
			UPDATE staged_bookings SET
				status = 'superseded', conflict_severity = NULL, updated_at = ?
			WHERE id = ? AND status = 'pending'
		`, rec.UpdatedAt, rec.ID)
		if err := guarded(result, err, "superseding", rec); err != nil {
			return err
		}
	}

	return nil
}

func guarded(result sql.Result, err error, verb string, rec models.StagedRecord) error {
	if err != nil {
		return fmt.Errorf("%s staged booking %s: %w", verb, rec.UID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s staged booking %s: %w", verb, rec.UID, ErrInvalidTransition)
	}
	return nil
}

// SetStatus records an operator decision. Only pending or superseded records
// can be confirmed or rejected.
func (r *StagedRepository) SetStatus(ctx context.Context, q Queryable, id string, to models.StageStatus) (*models.StagedRecord, error) {
	if !to.OperatorOwned() {
		return nil, fmt.Errorf("setting status %q: %w", to, ErrInvalidTransition)
	}

	result, err := r.q(q).ExecContext(ctx, `
		UPDATE staged_bookings SET status = ?, conflict_severity = NULL, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'superseded')
	`, to, r.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("updating staged booking status: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		cur, err := r.Get(ctx, q, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("staged booking %s is %s: %w", id, cur.Status, ErrInvalidTransition)
	}

	return r.Get(ctx, q, id)
}

// ReplaceConflicts swaps a unit's stored conflicts and staged conflict flags
// for a freshly computed set.
func (r *StagedRepository) ReplaceConflicts(ctx context.Context, q Queryable, unitID string, conflicts []models.ConflictRecord) error {
	db := r.q(q)
	now := r.Now()

	if _, err := db.ExecContext(ctx, `DELETE FROM booking_conflicts WHERE unit_id = ?`, unitID); err != nil {
		return fmt.Errorf("clearing conflicts: %w", err)
	}
	for _, c := range conflicts {
		_, err := db.ExecContext(ctx, `
			INSERT INTO booking_conflicts (
				unit_id, kind,
				a_source, a_record_id, a_platform, a_uid, a_check_in, a_check_out,
				b_source, b_record_id, b_platform, b_uid, b_check_in, b_check_out,
				overlap_start, overlap_end, overlap_nights, severity, detected_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			unitID, c.Kind,
			c.A.Source, c.A.RecordID, c.A.Platform, c.A.UID, c.A.CheckIn, c.A.CheckOut,
			c.B.Source, c.B.RecordID, c.B.Platform, c.B.UID, c.B.CheckIn, c.B.CheckOut,
			c.OverlapStart, c.OverlapEnd, c.OverlapNights, c.Severity, now,
		)
		if err != nil {
			return fmt.Errorf("inserting conflict: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE staged_bookings SET conflict_severity = NULL
		WHERE unit_id = ? AND conflict_severity IS NOT NULL
	`, unitID); err != nil {
		return fmt.Errorf("clearing conflict flags: %w", err)
	}
	for id, sev := range staging.FlagsByRecord(conflicts) {
		if _, err := db.ExecContext(ctx, `
			UPDATE staged_bookings SET conflict_severity = ? WHERE id = ?
		`, sev, id); err != nil {
			return fmt.Errorf("flagging staged booking %s: %w", id, err)
		}
	}
	return nil
}

// ListConflicts returns the stored conflicts for a unit.
func (r *StagedRepository) ListConflicts(ctx context.Context, unitID string) ([]models.ConflictRecord, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT unit_id, kind,
			a_source, a_record_id, a_platform, a_uid, a_check_in, a_check_out,
			b_source, b_record_id, b_platform, b_uid, b_check_in, b_check_out,
			overlap_start, overlap_end, overlap_nights, severity
		FROM booking_conflicts
		WHERE unit_id = ?
		ORDER BY overlap_start, id
	`, unitID)
	if err != nil {
		return nil, fmt.Errorf("querying conflicts: %w", err)
	}
	defer rows.Close()

	var out []models.ConflictRecord
	for rows.Next() {
		var c models.ConflictRecord
		if err := rows.Scan(
			&c.UnitID, &c.Kind,
			&c.A.Source, &c.A.RecordID, &c.A.Platform, &c.A.UID, &c.A.CheckIn, &c.A.CheckOut,
			&c.B.Source, &c.B.RecordID, &c.B.Platform, &c.B.UID, &c.B.CheckIn, &c.B.CheckOut,
			&c.OverlapStart, &c.OverlapEnd, &c.OverlapNights, &c.Severity,
		); err != nil {
			return nil, fmt.Errorf("scanning conflict: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
