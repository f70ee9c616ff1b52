package calendar

import (
	"regexp"
	"strings"

	"github.com/booking-sync/backend/internal/storage/models"
)

// EndDateConvention says how a platform's published DTEND relates to the
// guest's check-out morning.
type EndDateConvention int

const (
	// EndExclusive: DTEND is the check-out date (RFC 5545 all-day semantics).
	EndExclusive EndDateConvention = iota
	// EndInclusive: DTEND is the last occupied night; check-out is the day after.
	EndInclusive
)

// platformRule holds every platform-specific interpretation the parser applies.
type platformRule struct {
	// EndDate is the DTEND convention of the platform's export.
	EndDate EndDateConvention

	// Blocked matches summaries of placeholder events that hold dates
	// without being a reservation.
	Blocked *regexp.Regexp

	// GuestPrefix is stripped from the summary before it becomes a guest label.
	GuestPrefix *regexp.Regexp

	// Generic matches summaries that carry no guest information at all.
	Generic *regexp.Regexp

	// TrailingDigitsArePhone treats a trailing "(1234)" as a phone suffix.
	// When false the group is a booking code and is dropped.
	TrailingDigitsArePhone bool
}

var (
	trailingDigits   = regexp.MustCompile(`\s*\((\d{4})\)\s*$`)
	descriptionPhone = regexp.MustCompile(`(?i)\(?last 4 digits\)?\s*:\s*(\d{4})`)
	genericSummary   = regexp.MustCompile(`(?i)^(reserved|booked|booking|reservation|guest)$`)
)

// platformRules is the single source of per-platform parsing behavior.
// See DESIGN.md for how each end-date convention was chosen.
var platformRules = map[models.Platform]platformRule{
	models.PlatformAirbnb: {
		EndDate:                EndExclusive,
		Blocked:                regexp.MustCompile(`(?i)not available|blocked`),
		GuestPrefix:            regexp.MustCompile(`(?i)^reserved\s*[-:]\s*`),
		Generic:                genericSummary,
		TrailingDigitsArePhone: true,
	},
	models.PlatformVrbo: {
		EndDate:                EndExclusive,
		Blocked:                regexp.MustCompile(`(?i)^\s*(blocked|unavailable|not available)\b`),
		GuestPrefix:            regexp.MustCompile(`(?i)^reserved\s*[-:]\s*`),
		Generic:                genericSummary,
		TrailingDigitsArePhone: true,
	},
	models.PlatformBooking: {
		EndDate:                EndExclusive,
		Blocked:                regexp.MustCompile(`(?i)closed|not available`),
		GuestPrefix:            regexp.MustCompile(`(?i)^(booked|reserved)\s*[-:]\s*`),
		Generic:                genericSummary,
		TrailingDigitsArePhone: false,
	},
	models.PlatformDirect: {
		EndDate:                EndInclusive,
		Blocked:                regexp.MustCompile(`(?i)^\s*(blocked|unavailable|not available|owner (stay|block)|hold)\b`),
		GuestPrefix:            regexp.MustCompile(`(?i)^(reserved|booking|guest)\s*[-:]\s*`),
		Generic:                genericSummary,
		TrailingDigitsArePhone: true,
	},
}

// ruleFor returns the rule for a platform.
func ruleFor(p models.Platform) (platformRule, bool) {
	r, ok := platformRules[p]
	return r, ok
}

// EndDateConventionFor exposes the configured convention for a platform.
func EndDateConventionFor(p models.Platform) (EndDateConvention, bool) {
	r, ok := ruleFor(p)
	return r.EndDate, ok
}

// checkOut converts a published DTEND into an exclusive check-out date.
func (r platformRule) checkOut(dtend models.Date) models.Date {
	if r.EndDate == EndInclusive {
		return dtend.AddDays(1)
	}
	return dtend
}

// isBlocked reports whether the summary marks a placeholder event.
func (r platformRule) isBlocked(summary string) bool {
	return r.Blocked.MatchString(strings.TrimSpace(summary))
}

// guestDetails extracts the guest label and phone suffix from the event text.
func (r platformRule) guestDetails(summary, description string) (label, phone string) {
	label = strings.TrimSpace(summary)

	if m := trailingDigits.FindStringSubmatchIndex(label); m != nil {
		if r.TrailingDigitsArePhone {
			phone = label[m[2]:m[3]]
		}
		label = strings.TrimSpace(label[:m[0]])
	}

	if phone == "" {
		if m := descriptionPhone.FindStringSubmatch(description); len(m) > 1 {
			phone = m[1]
		}
	}

	label = strings.TrimSpace(r.GuestPrefix.ReplaceAllString(label, ""))
	if r.Generic.MatchString(label) {
		label = ""
	}
	return label, phone
}
