// Package metrics exposes Prometheus instrumentation for feed synchronization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/booking-sync/backend/internal/storage/models"
)

// Config holds metrics settings.
type Config struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// SyncMetrics records pipeline activity. All methods are safe on a nil receiver.
type SyncMetrics struct {
	runs          *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	stagedChanges *prometheus.CounterVec
	conflicts     prometheus.Counter
}

// NewSyncMetrics creates and registers the sync collectors.
func NewSyncMetrics(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_sync_runs_total",
			Help: "Total pipeline runs by platform and outcome.",
		},
		[]string{"platform", "outcome"}, // unchanged | updated | failed
	)

	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_sync_fetch_duration_seconds",
			Help:    "Time spent downloading a feed.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"platform"},
	)

	stagedChanges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_sync_staged_changes_total",
			Help: "Staged booking changes written by reconciliation.",
		},
		[]string{"kind"}, // new | changed | removed
	)

	conflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sync_conflicts_total",
			Help: "Overlapping bookings reported by sync runs.",
		},
	)

	registerer.MustRegister(runs, fetchDuration, stagedChanges, conflicts)

	return &SyncMetrics{
		runs:          runs,
		fetchDuration: fetchDuration,
		stagedChanges: stagedChanges,
		conflicts:     conflicts,
	}
}

// ObserveRun counts a finished run and what it changed.
func (m *SyncMetrics) ObserveRun(run models.SyncRun) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(run.Platform), string(run.Outcome)).Inc()
	m.stagedChanges.WithLabelValues("new").Add(float64(run.Counts.New))
	m.stagedChanges.WithLabelValues("changed").Add(float64(run.Counts.Changed))
	m.stagedChanges.WithLabelValues("removed").Add(float64(run.Counts.Removed))
	m.conflicts.Add(float64(run.Counts.Conflicts))
}

// ObserveFetch records the duration of a feed download.
func (m *SyncMetrics) ObserveFetch(platform models.Platform, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(string(platform)).Observe(d.Seconds())
}
