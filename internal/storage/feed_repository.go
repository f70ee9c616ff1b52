package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/booking-sync/backend/internal/storage/models"
)

// FeedRepository provides data access for registered feed pairs and their
// last reconciled snapshot.
type FeedRepository struct {
	BaseRepository
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const feedPairColumns = `unit_id, platform, url, sync_interval_min, enabled,
	last_sync_at, last_outcome, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedPair(s rowScanner) (models.FeedPair, error) {
	var (
		p           models.FeedPair
		lastSyncAt  sql.NullTime
		lastOutcome sql.NullString
	)
	if err := s.Scan(
		&p.UnitID, &p.Platform, &p.URL, &p.SyncIntervalMin, &p.Enabled,
		&lastSyncAt, &lastOutcome, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return p, err
	}
	if lastSyncAt.Valid {
		t := lastSyncAt.Time.UTC()
		p.LastSyncAt = &t
	}
	if lastOutcome.Valid {
		p.LastOutcome = &lastOutcome.String
	}
	return p, nil
}

// Upsert registers a pair or updates its URL, interval and enabled flag.
// Sync status is left untouched.
func (r *FeedRepository) Upsert(ctx context.Context, pair *models.FeedPair) error {
	if !pair.Platform.Valid() {
		return fmt.Errorf("upserting feed pair: unknown platform %q", pair.Platform)
	}
	now := r.Now()
	pair.UpdatedAt = now
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = now
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO feed_pairs (
			unit_id, platform, url, sync_interval_min, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unit_id, platform) DO UPDATE SET
			url = excluded.url,
			sync_interval_min = excluded.sync_interval_min,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`,
		pair.UnitID, pair.Platform, pair.URL, pair.SyncIntervalMin,
		pair.Enabled, pair.CreatedAt, pair.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting feed pair: %w", err)
	}
	return nil
}

// Get retrieves one pair.
func (r *FeedRepository) Get(ctx context.Context, key models.PairKey) (*models.FeedPair, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+feedPairColumns+`
		FROM feed_pairs WHERE unit_id = ? AND platform = ?
	`, key.UnitID, key.Platform)

	p, err := scanFeedPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feed pair %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying feed pair: %w", err)
	}
	return &p, nil
}

// List retrieves all registered pairs.
func (r *FeedRepository) List(ctx context.Context) ([]models.FeedPair, error) {
	return r.list(ctx, `
		SELECT `+feedPairColumns+`
		FROM feed_pairs
		ORDER BY unit_id, platform
	`)
}

// ListEnabled retrieves enabled pairs, least recently synced first.
func (r *FeedRepository) ListEnabled(ctx context.Context) ([]models.FeedPair, error) {
	return r.list(ctx, `
		SELECT `+feedPairColumns+`
		FROM feed_pairs
		WHERE enabled = 1
		ORDER BY last_sync_at ASC NULLS FIRST, unit_id, platform
	`)
}

func (r *FeedRepository) list(ctx context.Context, query string, args ...any) ([]models.FeedPair, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying feed pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.FeedPair
	for rows.Next() {
		p, err := scanFeedPair(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning feed pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// SetEnabled turns syncing of a pair on or off.
func (r *FeedRepository) SetEnabled(ctx context.Context, key models.PairKey, enabled bool) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE feed_pairs SET enabled = ?, updated_at = ?
		WHERE unit_id = ? AND platform = ?
	`, enabled, r.Now(), key.UnitID, key.Platform)
	if err != nil {
		return fmt.Errorf("updating feed pair: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("feed pair %s: %w", key, ErrNotFound)
	}
	return nil
}

// UpdateSyncStatus stamps the result of the latest run on the pair.
func (r *FeedRepository) UpdateSyncStatus(ctx context.Context, key models.PairKey, at time.Time, outcome models.SyncOutcome) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE feed_pairs SET last_sync_at = ?, last_outcome = ?, updated_at = ?
		WHERE unit_id = ? AND platform = ?
	`, at.UTC(), string(outcome), r.Now(), key.UnitID, key.Platform)
	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}
	return nil
}

// Delete removes a pair and its snapshot. Staged records are kept for review.
func (r *FeedRepository) Delete(ctx context.Context, key models.PairKey) error {
	return r.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM feed_pairs WHERE unit_id = ? AND platform = ?", key.UnitID, key.Platform)
		if err != nil {
			return fmt.Errorf("deleting feed pair: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("feed pair %s: %w", key, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM feed_snapshots WHERE unit_id = ? AND platform = ?", key.UnitID, key.Platform); err != nil {
			return fmt.Errorf("deleting feed snapshot: %w", err)
		}
		return nil
	})
}

// GetSnapshot returns the last reconciled snapshot, or nil if the pair has
// never been reconciled.
func (r *FeedRepository) GetSnapshot(ctx context.Context, key models.PairKey) (*models.FeedSnapshot, error) {
	s := &models.FeedSnapshot{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT unit_id, platform, fingerprint, fetched_at
		FROM feed_snapshots WHERE unit_id = ? AND platform = ?
	`, key.UnitID, key.Platform).Scan(&s.UnitID, &s.Platform, &s.Fingerprint, &s.FetchedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying feed snapshot: %w", err)
	}
	return s, nil
}

// SaveSnapshot replaces the pair's snapshot. It runs on tx when given so the
// snapshot commits together with the staged writes it describes.
func (r *FeedRepository) SaveSnapshot(ctx context.Context, tx Queryable, s models.FeedSnapshot) error {
	_, err := r.q(tx).ExecContext(ctx, `
		INSERT INTO feed_snapshots (unit_id, platform, fingerprint, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (unit_id, platform) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			fetched_at = excluded.fetched_at
	`, s.UnitID, s.Platform, s.Fingerprint, s.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving feed snapshot: %w", err)
	}
	return nil
}
