package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/storage/models"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSyncMetrics_ObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveRun(models.SyncRun{
		Platform: models.PlatformAirbnb,
		Outcome:  models.OutcomeUpdated,
		Counts:   models.SyncCounts{New: 2, Removed: 1, Conflicts: 1},
	})
	m.ObserveRun(models.SyncRun{Platform: models.PlatformAirbnb, Outcome: models.OutcomeUnchanged})
	m.ObserveFetch(models.PlatformAirbnb, 150*time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m.runs.WithLabelValues("airbnb", "updated")))
	assert.Equal(t, 1.0, counterValue(t, m.runs.WithLabelValues("airbnb", "unchanged")))
	assert.Equal(t, 2.0, counterValue(t, m.stagedChanges.WithLabelValues("new")))
	assert.Equal(t, 1.0, counterValue(t, m.stagedChanges.WithLabelValues("removed")))
	assert.Equal(t, 1.0, counterValue(t, m.conflicts))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "booking_sync_fetch_duration_seconds")
}

func TestSyncMetrics_NilSafe(t *testing.T) {
	var m *SyncMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun(models.SyncRun{})
		m.ObserveFetch(models.PlatformVrbo, time.Second)
	})
}
