package models

import (
	"time"
)

// SyncOutcome is the result of one pipeline run for a pair.
type SyncOutcome string

// Sync outcome constants
const (
	OutcomeUnchanged SyncOutcome = "unchanged"
	OutcomeUpdated   SyncOutcome = "updated"
	OutcomeFailed    SyncOutcome = "failed"
)

// AlertSeverity constants
const (
	AlertInfo    = "info"
	AlertWarning = "warning"
	AlertError   = "error"
)

// Alert is an operator-facing message raised during a run.
type Alert struct {
	ID        int64     `json:"id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	UnitID    string    `json:"unit_id,omitempty"`
	Platform  Platform  `json:"platform,omitempty"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncCounts summarizes what a run changed.
type SyncCounts struct {
	New       int `json:"new"`
	Changed   int `json:"changed"`
	Removed   int `json:"removed"`
	Conflicts int `json:"conflicts"`
}

// SyncRun is an immutable record of one pipeline run.
type SyncRun struct {
	ID          string      `json:"id"`
	UnitID      string      `json:"unit_id"`
	Platform    Platform    `json:"platform"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	Outcome     SyncOutcome `json:"outcome"`
	Counts      SyncCounts  `json:"counts"`
	EventsFound int         `json:"events_found"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Error       string      `json:"error,omitempty"`
	Alerts      []Alert     `json:"alerts"`
}

// Key returns the pair the run belongs to.
func (r SyncRun) Key() PairKey {
	return PairKey{UnitID: r.UnitID, Platform: r.Platform}
}

// AddAlert appends an alert stamped with the run's pair.
func (r *SyncRun) AddAlert(severity, title, message string) {
	r.Alerts = append(r.Alerts, Alert{
		UnitID:   r.UnitID,
		Platform: r.Platform,
		Severity: severity,
		Title:    title,
		Message:  message,
	})
}

// UnitStatus is the status-surface view of one unit.
type UnitStatus struct {
	UnitID      string      `json:"unit_id"`
	LastSyncAt  time.Time   `json:"last_sync_at"`
	LastOutcome SyncOutcome `json:"last_outcome"`
	Platform    Platform    `json:"platform"`
}
