package syncer

import (
	"context"
	"sync"

	"github.com/booking-sync/backend/internal/storage/models"
)

// PairLocker gives a run exclusive ownership of one pair. TryAcquire never
// waits: a pair that is already being synced is skipped for this tick.
type PairLocker interface {
	TryAcquire(ctx context.Context, key models.PairKey) (bool, error)
	Release(ctx context.Context, key models.PairKey) error
}

// MemoryLocker is an in-process PairLocker for single-instance deployments.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[models.PairKey]struct{}
}

// NewMemoryLocker creates an empty lock registry.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[models.PairKey]struct{})}
}

// TryAcquire takes the pair if it is free.
func (l *MemoryLocker) TryAcquire(_ context.Context, key models.PairKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return false, nil
	}
	l.held[key] = struct{}{}
	return true, nil
}

// Release frees the pair.
func (l *MemoryLocker) Release(_ context.Context, key models.PairKey) error {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
	return nil
}

// Held reports whether a pair is currently locked.
func (l *MemoryLocker) Held(key models.PairKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[key]
	return busy
}
