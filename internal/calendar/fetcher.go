package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/storage/models"
)

// DefaultMaxFeedBytes caps how much of a feed response is read.
const DefaultMaxFeedBytes = 5 << 20

// Fetcher downloads calendar feeds. It never retries; a failed pair is
// picked up again on the next scheduling tick.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	userAgent  string
	log        *zap.Logger
}

// NewFetcher creates a fetcher that aborts each download after timeout.
func NewFetcher(timeout time.Duration, maxBytes int64, log *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFeedBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout:   timeout,
		maxBytes:  maxBytes,
		userAgent: "booking-sync/1.0",
		log:       log,
	}
}

// Fetch downloads the raw calendar text for a pair.
func (f *Fetcher) Fetch(ctx context.Context, pair models.FeedPair) ([]byte, error) {
	fail := func(status int, err error) error {
		return &FetchError{
			UnitID:     pair.UnitID,
			Platform:   pair.Platform,
			URL:        RedactURL(pair.URL),
			StatusCode: status,
			Err:        err,
		}
	}

	if pair.URL == "" {
		return nil, fail(0, errors.New("feed URL is empty"))
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pair.URL, nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.1")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fail(0, fmt.Errorf("reading body: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fail(0, fmt.Errorf("feed larger than %d bytes", f.maxBytes))
	}

	f.log.Debug("feed fetched",
		zap.String("unit_id", pair.UnitID),
		zap.String("platform", string(pair.Platform)),
		zap.String("url", RedactURL(pair.URL)),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}

// RedactURL keeps only scheme and host; feed URLs embed private tokens.
func RedactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "feed://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redactedSuffix
}
