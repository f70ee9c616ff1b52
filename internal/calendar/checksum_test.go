package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/booking-sync/backend/internal/storage/models"
)

func interval(uid, in, out string) models.BookingInterval {
	return models.BookingInterval{
		UnitID:        "unit-1",
		Platform:      models.PlatformAirbnb,
		UID:           uid,
		CheckIn:       models.MustParseDate(in),
		CheckOut:      models.MustParseDate(out),
		IsReservation: true,
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := []models.BookingInterval{
		interval("a", "2025-09-01", "2025-09-03"),
		interval("b", "2025-09-10", "2025-09-12"),
	}
	b := []models.BookingInterval{a[1], a[0]}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
}

func TestFingerprint_DetectsDateChange(t *testing.T) {
	before := []models.BookingInterval{interval("a", "2025-09-17", "2025-09-20")}
	after := []models.BookingInterval{interval("a", "2025-09-17", "2025-09-22")}

	assert.NotEqual(t, Fingerprint(before), Fingerprint(after))
}

func TestFingerprint_IgnoresSummaryText(t *testing.T) {
	a := interval("a", "2025-09-17", "2025-09-20")
	b := a
	b.Summary = "Reserved - renamed"

	assert.Equal(t, Fingerprint([]models.BookingInterval{a}), Fingerprint([]models.BookingInterval{b}))
}

func TestCheckFingerprint(t *testing.T) {
	events := []models.BookingInterval{interval("a", "2025-09-17", "2025-09-20")}

	first := CheckFingerprint(events, nil)
	assert.Equal(t, GateChanged, first.Decision)

	snap := &models.FeedSnapshot{UnitID: "unit-1", Platform: models.PlatformAirbnb, Fingerprint: first.Fingerprint}
	second := CheckFingerprint(events, snap)
	assert.Equal(t, GateUnchanged, second.Decision)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	snap.Fingerprint = "stale"
	assert.Equal(t, GateChanged, CheckFingerprint(events, snap).Decision)
}
