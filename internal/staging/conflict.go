package staging

import (
	"sort"

	"github.com/booking-sync/backend/internal/storage/models"
)

// SeverityFor grades an overlap against the shorter of the two stays.
func SeverityFor(overlapNights, shorterNights int) models.ConflictSeverity {
	if shorterNights <= 0 || overlapNights >= shorterNights {
		return models.SeverityHigh
	}
	if overlapNights*2 >= shorterNights {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// DetectConflicts reports every overlapping pair among a unit's pending staged
// bookings and its active confirmed reservations. Each unordered pair is
// reported once; two confirmed reservations are never compared.
func DetectConflicts(unitID string, staged []models.StagedRecord, confirmed []models.Reservation) []models.ConflictRecord {
	candidates := make([]models.StagedRecord, 0, len(staged))
	for _, r := range staged {
		if r.UnitID != unitID || r.Status != models.StagePending || !r.IsReservation {
			continue
		}
		candidates = append(candidates, r)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	active := make([]models.Reservation, 0, len(confirmed))
	for _, r := range confirmed {
		if r.UnitID == unitID && r.IsActive() {
			active = append(active, r)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	var out []models.ConflictRecord
	seen := make(map[[2]string]bool)
	add := func(kind models.ConflictKind, a, b models.ConflictSide) {
		if kind == models.ConflictStagedStaged && b.Key() < a.Key() {
			a, b = b, a
		}
		id := [2]string{a.Key(), b.Key()}
		if a.Key() == b.Key() || seen[id] {
			return
		}
		c, ok := overlap(unitID, kind, a, b)
		if !ok {
			return
		}
		seen[id] = true
		out = append(out, c)
	}

	for i, s := range candidates {
		for _, other := range candidates[i+1:] {
			add(models.ConflictStagedStaged, stagedSide(s), stagedSide(other))
		}
		for _, r := range active {
			add(models.ConflictStagedConfirmed, stagedSide(s), confirmedSide(r))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OverlapStart.Equal(out[j].OverlapStart) {
			return out[i].OverlapStart.Before(out[j].OverlapStart)
		}
		if out[i].A.Key() != out[j].A.Key() {
			return out[i].A.Key() < out[j].A.Key()
		}
		return out[i].B.Key() < out[j].B.Key()
	})
	return out
}

// FlagsByRecord returns the worst severity per staged record id.
func FlagsByRecord(conflicts []models.ConflictRecord) map[string]models.ConflictSeverity {
	flags := make(map[string]models.ConflictSeverity)
	mark := func(side models.ConflictSide, sev models.ConflictSeverity) {
		if side.Source != models.SourceStaged {
			return
		}
		if sev.Rank() > flags[side.RecordID].Rank() {
			flags[side.RecordID] = sev
		}
	}
	for _, c := range conflicts {
		mark(c.A, c.Severity)
		mark(c.B, c.Severity)
	}
	return flags
}

// Involving filters conflicts to those touching any of the given staged ids.
func Involving(conflicts []models.ConflictRecord, stagedIDs []string) []models.ConflictRecord {
	want := make(map[string]bool, len(stagedIDs))
	for _, id := range stagedIDs {
		want[id] = true
	}
	var out []models.ConflictRecord
	for _, c := range conflicts {
		if (c.A.Source == models.SourceStaged && want[c.A.RecordID]) ||
			(c.B.Source == models.SourceStaged && want[c.B.RecordID]) {
			out = append(out, c)
		}
	}
	return out
}

func overlap(unitID string, kind models.ConflictKind, a, b models.ConflictSide) (models.ConflictRecord, bool) {
	// Half-open: a stay ending on the day another begins is not a conflict.
	if !(a.CheckIn.Before(b.CheckOut) && b.CheckIn.Before(a.CheckOut)) {
		return models.ConflictRecord{}, false
	}
	start := models.MaxDate(a.CheckIn, b.CheckIn)
	end := models.MinDate(a.CheckOut, b.CheckOut)
	nights := start.DaysUntil(end)

	shorter := a.CheckIn.DaysUntil(a.CheckOut)
	if n := b.CheckIn.DaysUntil(b.CheckOut); n < shorter {
		shorter = n
	}

	return models.ConflictRecord{
		UnitID:        unitID,
		Kind:          kind,
		A:             a,
		B:             b,
		OverlapStart:  start,
		OverlapEnd:    end,
		OverlapNights: nights,
		Severity:      SeverityFor(nights, shorter),
	}, true
}

func stagedSide(r models.StagedRecord) models.ConflictSide {
	return models.ConflictSide{
		Source:   models.SourceStaged,
		RecordID: r.ID,
		Platform: r.Platform,
		UID:      r.UID,
		CheckIn:  r.CheckIn,
		CheckOut: r.CheckOut,
	}
}

func confirmedSide(r models.Reservation) models.ConflictSide {
	return models.ConflictSide{
		Source:   models.SourceConfirmed,
		RecordID: r.ID,
		CheckIn:  r.CheckIn,
		CheckOut: r.CheckOut,
	}
}
