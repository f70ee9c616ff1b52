package staging

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-sync/backend/internal/storage/models"
)

var (
	testPair = models.PairKey{UnitID: "unit-1", Platform: models.PlatformAirbnb}
	testNow  = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
)

func withSequentialIDs(t *testing.T) {
	t.Helper()
	n := 0
	orig := newID
	newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { newID = orig })
}

func booking(uid, in, out string) models.BookingInterval {
	return models.BookingInterval{
		UnitID:        testPair.UnitID,
		Platform:      testPair.Platform,
		UID:           uid,
		CheckIn:       models.MustParseDate(in),
		CheckOut:      models.MustParseDate(out),
		IsReservation: true,
	}
}

func staged(id string, status models.StageStatus, b models.BookingInterval) models.StagedRecord {
	seen := testNow.Add(-24 * time.Hour)
	return models.StagedRecord{
		ID:              id,
		BookingInterval: b,
		Status:          status,
		FirstSeenAt:     seen,
		LastSeenAt:      seen,
		UpdatedAt:       seen,
	}
}

func TestReconcile_NewBookings(t *testing.T) {
	withSequentialIDs(t)

	blocked := booking("block", "2025-09-01", "2025-09-05")
	blocked.IsReservation = false

	plan := Reconcile(testPair, []models.BookingInterval{
		booking("a", "2025-09-17", "2025-09-20"),
		blocked,
		booking("b", "2025-10-01", "2025-10-03"),
	}, nil, testNow)

	require.Len(t, plan.Inserts, 2)
	assert.Equal(t, "id-1", plan.Inserts[0].ID)
	assert.Equal(t, "a", plan.Inserts[0].UID)
	assert.Equal(t, models.StagePending, plan.Inserts[0].Status)
	assert.Equal(t, testNow, plan.Inserts[0].FirstSeenAt)
	assert.Equal(t, models.SyncCounts{New: 2}, plan.Counts)
	assert.Empty(t, plan.Alerts)
}

func TestReconcile_DateChangeUpdatesInPlace(t *testing.T) {
	existing := []models.StagedRecord{staged("rec-1", models.StagePending, booking("a", "2025-09-17", "2025-09-20"))}

	plan := Reconcile(testPair, []models.BookingInterval{booking("a", "2025-09-17", "2025-09-22")}, existing, testNow)

	assert.Empty(t, plan.Inserts)
	require.Len(t, plan.Updates, 1)
	u := plan.Updates[0]
	assert.Equal(t, "rec-1", u.ID)
	assert.Equal(t, models.StagePending, u.Status)
	assert.Equal(t, "2025-09-22", u.CheckOut.String())
	assert.Equal(t, existing[0].FirstSeenAt, u.FirstSeenAt)
	assert.Equal(t, testNow, u.LastSeenAt)
	assert.Equal(t, models.SyncCounts{Changed: 1}, plan.Counts)
}

func TestReconcile_UnchangedPendingIsTouched(t *testing.T) {
	existing := []models.StagedRecord{staged("rec-1", models.StagePending, booking("a", "2025-09-17", "2025-09-20"))}

	in := booking("a", "2025-09-17", "2025-09-20")
	in.PhoneSuffix = "8772"
	plan := Reconcile(testPair, []models.BookingInterval{in}, existing, testNow)

	assert.Empty(t, plan.Updates)
	require.Len(t, plan.Touches, 1)
	assert.Equal(t, "8772", plan.Touches[0].PhoneSuffix)
	assert.Equal(t, models.SyncCounts{}, plan.Counts)
}

func TestReconcile_OperatorDecisionsAreImmutable(t *testing.T) {
	existing := []models.StagedRecord{
		staged("rec-c", models.StageConfirmed, booking("c", "2025-09-17", "2025-09-20")),
		staged("rec-r", models.StageRejected, booking("r", "2025-10-01", "2025-10-03")),
	}

	plan := Reconcile(testPair, []models.BookingInterval{
		booking("c", "2025-09-17", "2025-09-25"),
		booking("r", "2025-10-05", "2025-10-09"),
	}, existing, testNow)

	assert.True(t, plan.Empty())
	assert.Equal(t, models.SyncCounts{}, plan.Counts)
	require.Len(t, plan.Alerts, 1)
	assert.Equal(t, models.AlertInfo, plan.Alerts[0].Severity)

	// Absent from the feed they are still left alone.
	plan = Reconcile(testPair, nil, existing, testNow)
	assert.True(t, plan.Empty())
	assert.Empty(t, plan.Alerts)
}

func TestReconcile_RemovedPendingIsSuperseded(t *testing.T) {
	sev := models.SeverityHigh
	gone := staged("rec-1", models.StagePending, booking("a", "2025-09-17", "2025-09-20"))
	gone.ConflictSeverity = &sev
	past := staged("rec-2", models.StagePending, booking("old", "2025-08-01", "2025-08-03"))

	plan := Reconcile(testPair, nil, []models.StagedRecord{gone, past}, testNow)

	require.Len(t, plan.Supersedes, 2)
	assert.Equal(t, "a", plan.Supersedes[0].UID)
	assert.Equal(t, models.StageSuperseded, plan.Supersedes[0].Status)
	assert.Nil(t, plan.Supersedes[0].ConflictSeverity)
	assert.Equal(t, 2, plan.Counts.Removed)

	// Only the future stay warns.
	require.Len(t, plan.Alerts, 1)
	assert.Equal(t, models.AlertWarning, plan.Alerts[0].Severity)
	assert.Contains(t, plan.Alerts[0].Message, "a")
}

func TestReconcile_SupersededReappears(t *testing.T) {
	existing := []models.StagedRecord{staged("rec-1", models.StageSuperseded, booking("a", "2025-09-17", "2025-09-20"))}

	plan := Reconcile(testPair, []models.BookingInterval{booking("a", "2025-09-17", "2025-09-20")}, existing, testNow)

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "rec-1", plan.Updates[0].ID)
	assert.Equal(t, models.StagePending, plan.Updates[0].Status)
	assert.Equal(t, models.SyncCounts{Changed: 1}, plan.Counts)

	// A superseded record that stays absent is not superseded again.
	plan = Reconcile(testPair, nil, existing, testNow)
	assert.True(t, plan.Empty())
}

func TestReconcile_DuplicateUIDs(t *testing.T) {
	withSequentialIDs(t)

	plan := Reconcile(testPair, []models.BookingInterval{
		booking("a", "2025-09-17", "2025-09-20"),
		booking("b", "2025-10-01", "2025-10-03"),
		booking("a", "2025-09-17", "2025-09-21"),
	}, nil, testNow)

	require.Len(t, plan.Inserts, 2)
	assert.Equal(t, "a", plan.Inserts[0].UID)
	assert.Equal(t, "2025-09-21", plan.Inserts[0].CheckOut.String())
	assert.Equal(t, 2, plan.Counts.New)
	require.Len(t, plan.Alerts, 1)
	assert.Contains(t, plan.Alerts[0].Message, "2 times")
}

func TestReconcile_IsIdempotent(t *testing.T) {
	withSequentialIDs(t)
	feed := []models.BookingInterval{booking("a", "2025-09-17", "2025-09-20")}

	first := Reconcile(testPair, feed, nil, testNow)
	require.Len(t, first.Inserts, 1)

	second := Reconcile(testPair, feed, first.Inserts, testNow.Add(time.Hour))
	assert.Equal(t, models.SyncCounts{}, second.Counts)
	assert.Empty(t, second.Inserts)
	assert.Empty(t, second.Updates)
	assert.Empty(t, second.Supersedes)
}

func TestPlan_RecordIDs(t *testing.T) {
	p := Plan{
		Inserts:    []models.StagedRecord{{ID: "i"}},
		Updates:    []models.StagedRecord{{ID: "u"}},
		Touches:    []models.StagedRecord{{ID: "t"}},
		Supersedes: []models.StagedRecord{{ID: "s"}},
	}
	assert.ElementsMatch(t, []string{"i", "u", "t"}, p.RecordIDs())
}
