package models

import (
	"time"
)

// BookingInterval is one normalized event from a platform feed.
// CheckOut is always exclusive: the guest leaves on that morning.
type BookingInterval struct {
	UnitID        string   `json:"unit_id"`
	Platform      Platform `json:"platform"`
	UID           string   `json:"external_uid"`
	CheckIn       Date     `json:"check_in"`
	CheckOut      Date     `json:"check_out"`
	GuestLabel    string   `json:"guest_label,omitempty"`
	PhoneSuffix   string   `json:"phone_suffix,omitempty"`
	Summary       string   `json:"summary"`
	IsReservation bool     `json:"is_reservation"`
}

// Nights returns the number of occupied nights.
func (b BookingInterval) Nights() int {
	return b.CheckIn.DaysUntil(b.CheckOut)
}

// SameDates reports whether both intervals cover the same nights.
func (b BookingInterval) SameDates(o BookingInterval) bool {
	return b.CheckIn.Equal(o.CheckIn) && b.CheckOut.Equal(o.CheckOut)
}

// StageStatus is the review state of a staged booking.
type StageStatus string

// Stage status constants
const (
	StagePending    StageStatus = "pending"    // Awaiting operator review
	StageConfirmed  StageStatus = "confirmed"  // Accepted by the operator; never touched by sync again
	StageRejected   StageStatus = "rejected"   // Dismissed by the operator
	StageSuperseded StageStatus = "superseded" // Dropped from the source feed while pending
)

// OperatorOwned reports whether the status was set by an operator and is
// therefore immutable for automated sync.
func (s StageStatus) OperatorOwned() bool {
	return s == StageConfirmed || s == StageRejected
}

// StagedRecord is a booking held in the review queue.
type StagedRecord struct {
	ID string `json:"id"`
	BookingInterval
	Status           StageStatus       `json:"stage_status"`
	ConflictSeverity *ConflictSeverity `json:"conflict_severity,omitempty"`
	FirstSeenAt      time.Time         `json:"first_seen_at"`
	LastSeenAt       time.Time         `json:"last_seen_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Key returns the pair the record was staged from.
func (r StagedRecord) Key() PairKey {
	return PairKey{UnitID: r.UnitID, Platform: r.Platform}
}

// HasConflict reports whether the record is flagged as overlapping another booking.
func (r StagedRecord) HasConflict() bool {
	return r.ConflictSeverity != nil
}

// ReservationStatusCancelled marks a ledger reservation that no longer occupies the unit.
const ReservationStatusCancelled = "cancelled"

// Reservation is a confirmed booking from the reservation ledger. The ledger
// is owned by an external system and is only read here.
type Reservation struct {
	ID        string `json:"id"`
	UnitID    string `json:"unit_id"`
	CheckIn   Date   `json:"check_in"`
	CheckOut  Date   `json:"check_out"`
	GuestName string `json:"guest_name,omitempty"`
	Status    string `json:"status"`
	Source    string `json:"source,omitempty"`
}

// IsActive reports whether the reservation still occupies the unit.
func (r Reservation) IsActive() bool {
	return r.Status != ReservationStatusCancelled
}
