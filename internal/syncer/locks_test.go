package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/storage/models"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	a := models.PairKey{UnitID: "unit-1", Platform: models.PlatformAirbnb}
	b := models.PairKey{UnitID: "unit-1", Platform: models.PlatformVrbo}

	ok, err := l.TryAcquire(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.TryAcquire(ctx, a)
	assert.False(t, ok)

	ok, _ = l.TryAcquire(ctx, b)
	assert.True(t, ok, "different pairs do not block each other")

	require.NoError(t, l.Release(ctx, a))
	assert.False(t, l.Held(a))
	ok, _ = l.TryAcquire(ctx, a)
	assert.True(t, ok)
}

func TestMemoryLocker_SingleWinner(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	key := models.PairKey{UnitID: "unit-1", Platform: models.PlatformAirbnb}

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.TryAcquire(ctx, key); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
