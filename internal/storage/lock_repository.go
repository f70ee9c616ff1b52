package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/booking-sync/backend/internal/storage/models"
)

// LockRepository manages advisory per-pair leases shared by every instance
// pointed at the same database. A lease past its expiry can be taken over,
// so a crashed holder never blocks a pair for longer than the TTL.
type LockRepository struct {
	BaseRepository
	owner string
	ttl   time.Duration
}

// NewLockRepository creates a lease store. Leases are tagged with a random
// owner id unique to this process.
func NewLockRepository(db *DB, ttl time.Duration) *LockRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LockRepository{
		BaseRepository: NewBaseRepository(db),
		owner:          GenerateID(),
		ttl:            ttl,
	}
}

// Owner returns the id this process writes into its leases.
func (r *LockRepository) Owner() string {
	return r.owner
}

// TryAcquire takes the lease for a pair. It reports false when another
// owner holds an unexpired lease.
func (r *LockRepository) TryAcquire(ctx context.Context, key models.PairKey) (bool, error) {
	now := r.Now()
	result, err := r.DB().ExecContext(ctx, `
		INSERT INTO sync_locks (unit_id, platform, owner, acquired_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (unit_id, platform) DO UPDATE SET
			owner = excluded.owner,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at
		WHERE sync_locks.expires_at <= ?
	`, key.UnitID, key.Platform, r.owner, now, now.Add(r.ttl), now)
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	return n == 1, nil
}

// Release drops the lease if this process still holds it.
func (r *LockRepository) Release(ctx context.Context, key models.PairKey) error {
	_, err := r.DB().ExecContext(ctx, `
		DELETE FROM sync_locks WHERE unit_id = ? AND platform = ? AND owner = ?
	`, key.UnitID, key.Platform, r.owner)
	if err != nil {
		return fmt.Errorf("releasing lease %s: %w", key, err)
	}
	return nil
}
