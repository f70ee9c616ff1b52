package calendar

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/booking-sync/backend/internal/storage/models"
)

// GateDecision tells the orchestrator whether reconciliation can be skipped.
type GateDecision string

const (
	GateChanged   GateDecision = "changed"
	GateUnchanged GateDecision = "unchanged"
)

// GateResult is the outcome of comparing a parsed feed to its last snapshot.
type GateResult struct {
	Decision    GateDecision
	Fingerprint string
}

// Fingerprint hashes the canonical form of an event set: one
// (uid, check-in, check-out) tuple per event, sorted by uid. Feeds that list
// the same events in a different order share a fingerprint.
func Fingerprint(events []models.BookingInterval) string {
	tuples := make([]string, 0, len(events))
	for _, e := range events {
		tuples = append(tuples, e.UID+"\t"+e.CheckIn.String()+"\t"+e.CheckOut.String())
	}
	// Sorting whole tuples orders by uid first and keeps duplicate uids stable.
	sort.Strings(tuples)

	h := sha256.New()
	h.Write([]byte(strings.Join(tuples, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// CheckFingerprint compares the parsed events against the last reconciled
// snapshot. A nil snapshot always counts as changed.
func CheckFingerprint(events []models.BookingInterval, last *models.FeedSnapshot) GateResult {
	fp := Fingerprint(events)
	if last != nil && last.Fingerprint == fp {
		return GateResult{Decision: GateUnchanged, Fingerprint: fp}
	}
	return GateResult{Decision: GateChanged, Fingerprint: fp}
}
