package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/booking-sync/backend/internal/storage/models"
)

// FetchError reports a failed feed download for one pair.
type FetchError struct {
	UnitID     string
	Platform   models.Platform
	URL        string // redacted
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	pair := models.PairKey{UnitID: e.UnitID, Platform: e.Platform}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching feed %s (%s): status %d", pair, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching feed %s (%s): %v", pair, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the fetch was aborted by its deadline.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ParseError reports calendar text that could not be normalized.
// Block is the zero-based index of the offending event, or -1 when the
// document as a whole is unreadable.
type ParseError struct {
	UnitID   string
	Platform models.Platform
	Block    int
	UID      string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	pair := models.PairKey{UnitID: e.UnitID, Platform: e.Platform}
	msg := fmt.Sprintf("parsing feed %s", pair)
	if e.Block >= 0 {
		msg += fmt.Sprintf(": event %d", e.Block)
		if e.UID != "" {
			msg += fmt.Sprintf(" (uid %s)", e.UID)
		}
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
