// Package staging reconciles parsed feeds against the review queue and
// detects overlapping bookings.
package staging

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/booking-sync/backend/internal/storage/models"
)

// Plan is the set of writes needed to bring one pair's staged records in line
// with its feed. It is applied atomically by the storage layer.
type Plan struct {
	Pair       models.PairKey
	Inserts    []models.StagedRecord
	Updates    []models.StagedRecord
	Supersedes []models.StagedRecord
	// Touches are records whose dates are unchanged; only last-seen and
	// guest details are refreshed.
	Touches []models.StagedRecord
	Counts  models.SyncCounts
	Alerts  []models.Alert
}

// Empty reports whether applying the plan would write nothing.
func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.Supersedes) == 0 && len(p.Touches) == 0
}

// RecordIDs returns the ids of every record the plan leaves pending.
func (p Plan) RecordIDs() []string {
	ids := make([]string, 0, len(p.Inserts)+len(p.Updates)+len(p.Touches))
	for _, group := range [][]models.StagedRecord{p.Inserts, p.Updates, p.Touches} {
		for _, r := range group {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (p *Plan) alert(severity, title, message string) {
	p.Alerts = append(p.Alerts, models.Alert{
		UnitID:   p.Pair.UnitID,
		Platform: p.Pair.Platform,
		Severity: severity,
		Title:    title,
		Message:  message,
	})
}

// newID is swapped in tests for deterministic ids.
var newID = uuid.NewString

// Reconcile compares incoming events for one pair against the records already
// staged for that pair. Only reservations are staged. Records an operator has
// confirmed or rejected are never modified.
func Reconcile(pair models.PairKey, incoming []models.BookingInterval, existing []models.StagedRecord, now time.Time) Plan {
	plan := Plan{Pair: pair}
	now = now.UTC()
	today := models.DateOf(now)

	feed, order := dedupe(&plan, pair, incoming)

	byUID := make(map[string]models.StagedRecord, len(existing))
	for _, r := range existing {
		byUID[r.UID] = r
	}

	for _, uid := range order {
		in := feed[uid]
		cur, ok := byUID[uid]
		if !ok {
			plan.Inserts = append(plan.Inserts, models.StagedRecord{
				ID:              newID(),
				BookingInterval: in,
				Status:          models.StagePending,
				FirstSeenAt:     now,
				LastSeenAt:      now,
				UpdatedAt:       now,
			})
			plan.Counts.New++
			continue
		}

		switch cur.Status {
		case models.StageConfirmed:
			if !cur.SameDates(in) {
				plan.alert(models.AlertInfo, "Confirmed booking changed on platform",
					fmt.Sprintf("%s booking %s now reads %s to %s; confirmed record keeps %s to %s",
						pair.Platform, uid, in.CheckIn, in.CheckOut, cur.CheckIn, cur.CheckOut))
			}
		case models.StageRejected:
			// Operator decision stands.
		case models.StageSuperseded:
			plan.Updates = append(plan.Updates, refreshed(cur, in, now))
			plan.Counts.Changed++
		default:
			if cur.SameDates(in) {
				plan.Touches = append(plan.Touches, refreshed(cur, in, now))
				continue
			}
			plan.Updates = append(plan.Updates, refreshed(cur, in, now))
			plan.Counts.Changed++
		}
	}

	// Deterministic order for removals.
	gone := make([]models.StagedRecord, 0)
	for _, r := range existing {
		if _, ok := feed[r.UID]; ok || r.Status != models.StagePending {
			continue
		}
		gone = append(gone, r)
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].UID < gone[j].UID })

	for _, r := range gone {
		r.Status = models.StageSuperseded
		r.ConflictSeverity = nil
		r.UpdatedAt = now
		plan.Supersedes = append(plan.Supersedes, r)
		plan.Counts.Removed++

		if r.CheckOut.After(today) {
			plan.alert(models.AlertWarning, "Pending booking removed from feed",
				fmt.Sprintf("%s booking %s (%s to %s) is no longer published", pair.Platform, r.UID, r.CheckIn, r.CheckOut))
		}
	}

	return plan
}

// dedupe keeps reservations only and collapses repeated uids. The last
// occurrence's data wins; the uid keeps its first position.
func dedupe(plan *Plan, pair models.PairKey, incoming []models.BookingInterval) (map[string]models.BookingInterval, []string) {
	feed := make(map[string]models.BookingInterval, len(incoming))
	order := make([]string, 0, len(incoming))
	dupes := make(map[string]int)

	for _, in := range incoming {
		if !in.IsReservation {
			continue
		}
		in.UnitID = pair.UnitID
		in.Platform = pair.Platform
		if _, seen := feed[in.UID]; seen {
			dupes[in.UID]++
		} else {
			order = append(order, in.UID)
		}
		feed[in.UID] = in
	}

	if len(dupes) > 0 {
		uids := make([]string, 0, len(dupes))
		for uid := range dupes {
			uids = append(uids, uid)
		}
		sort.Strings(uids)
		for _, uid := range uids {
			plan.alert(models.AlertWarning, "Duplicate event in feed",
				fmt.Sprintf("%s feed lists uid %s %d times; the last entry was used", pair.Platform, uid, dupes[uid]+1))
		}
	}
	return feed, order
}

func refreshed(cur models.StagedRecord, in models.BookingInterval, now time.Time) models.StagedRecord {
	out := cur
	out.BookingInterval = in
	out.Status = models.StagePending
	out.LastSeenAt = now
	out.UpdatedAt = now
	return out
}
