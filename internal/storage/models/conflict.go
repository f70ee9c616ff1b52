package models

// ConflictSeverity grades how much of the shorter booking is double-booked.
type ConflictSeverity string

// Conflict severity constants, ordered low to high.
const (
	SeverityLow    ConflictSeverity = "low"    // Less than half of the shorter stay overlaps
	SeverityMedium ConflictSeverity = "medium" // At least half overlaps
	SeverityHigh   ConflictSeverity = "high"   // The shorter stay is fully covered
)

// Rank orders severities so the worst one can be kept.
func (s ConflictSeverity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ConflictKind says which kinds of booking overlap.
type ConflictKind string

// Conflict kind constants
const (
	ConflictStagedConfirmed ConflictKind = "staged_confirmed"
	ConflictStagedStaged    ConflictKind = "staged_staged"
)

// Booking source constants used on conflict sides.
const (
	SourceStaged    = "staged"
	SourceConfirmed = "confirmed"
)

// ConflictSide is one of the two bookings in a conflict.
type ConflictSide struct {
	Source   string   `json:"source"` // "staged" or "confirmed"
	RecordID string   `json:"record_id"`
	Platform Platform `json:"platform,omitempty"`
	UID      string   `json:"external_uid,omitempty"`
	CheckIn  Date     `json:"check_in"`
	CheckOut Date     `json:"check_out"`
}

// Key identifies the side across sources.
func (s ConflictSide) Key() string {
	return s.Source + ":" + s.RecordID
}

// ConflictRecord describes two overlapping bookings in one unit.
type ConflictRecord struct {
	UnitID        string           `json:"unit_id"`
	Kind          ConflictKind     `json:"kind"`
	A             ConflictSide     `json:"a"`
	B             ConflictSide     `json:"b"`
	OverlapStart  Date             `json:"overlap_start"`
	OverlapEnd    Date             `json:"overlap_end"`
	OverlapNights int              `json:"overlap_nights"`
	Severity      ConflictSeverity `json:"severity"`
}
