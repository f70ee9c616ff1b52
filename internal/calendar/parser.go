// Package calendar provides iCal feed fetching, parsing and change detection.
package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/storage/models"
)

// Parser normalizes iCal feeds into booking intervals.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new iCal parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Parse converts raw calendar text published for one unit on one platform
// into booking intervals, in feed order. Any malformed event fails the whole
// feed; no partial result is returned.
func (p *Parser) Parse(unitID string, platform models.Platform, body []byte) ([]models.BookingInterval, error) {
	docErr := func(reason string, err error) error {
		return &ParseError{UnitID: unitID, Platform: platform, Block: -1, Reason: reason, Err: err}
	}

	rule, ok := ruleFor(platform)
	if !ok {
		return nil, docErr(fmt.Sprintf("unknown platform %q", platform), nil)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, docErr("empty feed", nil)
	}
	upper := bytes.ToUpper(body)
	if !bytes.Contains(upper, []byte("BEGIN:VCALENDAR")) {
		return nil, docErr("missing VCALENDAR wrapper", nil)
	}
	// A body cut off mid-transfer can still hold whole events.
	if !bytes.Contains(upper, []byte("END:VCALENDAR")) {
		return nil, docErr("missing END:VCALENDAR", nil)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, docErr("malformed calendar", err)
	}

	vevents := cal.Events()
	intervals := make([]models.BookingInterval, 0, len(vevents))
	for i, ve := range vevents {
		interval, err := parseEvent(unitID, platform, rule, ve)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Block = i
				return nil, pe
			}
			return nil, &ParseError{UnitID: unitID, Platform: platform, Block: i, Reason: "invalid event", Err: err}
		}
		intervals = append(intervals, interval)
	}

	p.log.Debug("feed parsed",
		zap.String("unit_id", unitID),
		zap.String("platform", string(platform)),
		zap.Int("event_count", len(intervals)),
	)
	return intervals, nil
}

func parseEvent(unitID string, platform models.Platform, rule platformRule, ve *ical.VEvent) (models.BookingInterval, error) {
	eventErr := func(uid, reason string, err error) error {
		return &ParseError{UnitID: unitID, Platform: platform, UID: uid, Reason: reason, Err: err}
	}

	out := models.BookingInterval{UnitID: unitID, Platform: platform}

	uid := propertyText(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return out, eventErr("", "missing UID", nil)
	}
	out.UID = uid

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, eventErr(uid, "missing DTSTART", nil)
	}
	checkIn, err := parseDateValue(startProp.Value)
	if err != nil {
		return out, eventErr(uid, "invalid DTSTART", err)
	}

	// A date-valued event without DTEND lasts one day.
	checkOut := checkIn.AddDays(1)
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		dtend, err := parseDateValue(endProp.Value)
		if err != nil {
			return out, eventErr(uid, "invalid DTEND", err)
		}
		checkOut = rule.checkOut(dtend)
	}
	if !checkOut.After(checkIn) {
		return out, eventErr(uid, fmt.Sprintf("check-out %s is not after check-in %s", checkOut, checkIn), nil)
	}
	out.CheckIn = checkIn
	out.CheckOut = checkOut

	out.Summary = propertyText(ve, ical.ComponentPropertySummary)
	description := propertyText(ve, ical.ComponentPropertyDescription)

	out.IsReservation = !rule.isBlocked(out.Summary)
	if out.IsReservation {
		out.GuestLabel, out.PhoneSuffix = rule.guestDetails(out.Summary, description)
	}

	return out, nil
}

// propertyText returns the trimmed value of a text property. The ical
// decoder has already unescaped it.
func propertyText(ve *ical.VEvent, prop ical.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

// parseDateValue reads the date part of a DATE or DATE-TIME value.
// Only the calendar date is kept; stays are whole nights.
func parseDateValue(v string) (models.Date, error) {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		v = v[:i]
	}

	for _, layout := range []string{"20060102", models.DateLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognized date %q", v)
}
