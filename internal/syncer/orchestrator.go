package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/booking-sync/backend/internal/archive"
	"github.com/booking-sync/backend/internal/calendar"
	"github.com/booking-sync/backend/internal/metrics"
	"github.com/booking-sync/backend/internal/review"
	"github.com/booking-sync/backend/internal/storage/models"
)

// PairSource lists the registered feeds.
type PairSource interface {
	ListEnabled(ctx context.Context) ([]models.FeedPair, error)
	Get(ctx context.Context, key models.PairKey) (*models.FeedPair, error)
}

// FeedFetcher downloads a pair's raw calendar text.
type FeedFetcher interface {
	Fetch(ctx context.Context, pair models.FeedPair) ([]byte, error)
}

// Stager compares feeds against their last snapshot and writes the review queue.
type Stager interface {
	Snapshot(ctx context.Context, key models.PairKey) (*models.FeedSnapshot, error)
	Reconcile(ctx context.Context, key models.PairKey, events []models.BookingInterval, fingerprint string) (review.Result, error)
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	Record(ctx context.Context, run *models.SyncRun) error
}

// Orchestrator drives fetch, parse, gate and reconcile for each pair.
// Pairs are isolated: a failure in one never affects another.
type Orchestrator struct {
	pairs    PairSource
	fetcher  FeedFetcher
	parser   *calendar.Parser
	stager   Stager
	recorder RunRecorder
	locks    PairLocker
	archive  *archive.Archive
	metrics  *metrics.SyncMetrics
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

// Deps are the collaborators of an Orchestrator. Archive and Metrics may be nil.
type Deps struct {
	Pairs    PairSource
	Fetcher  FeedFetcher
	Parser   *calendar.Parser
	Stager   Stager
	Recorder RunRecorder
	Locks    PairLocker
	Archive  *archive.Archive
	Metrics  *metrics.SyncMetrics
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg Config, deps Deps, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if deps.Parser == nil {
		deps.Parser = calendar.NewParser(log)
	}
	if deps.Locks == nil {
		deps.Locks = NewMemoryLocker()
	}
	return &Orchestrator{
		pairs:    deps.Pairs,
		fetcher:  deps.Fetcher,
		parser:   deps.Parser,
		stager:   deps.Stager,
		recorder: deps.Recorder,
		locks:    deps.Locks,
		archive:  deps.Archive,
		metrics:  deps.Metrics,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RunAll syncs every enabled pair regardless of its interval.
func (o *Orchestrator) RunAll(ctx context.Context) ([]models.SyncRun, error) {
	pairs, err := o.pairs.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feed pairs: %w", err)
	}
	return o.runPairs(ctx, pairs), nil
}

// RunDue syncs the enabled pairs whose interval has elapsed.
func (o *Orchestrator) RunDue(ctx context.Context) ([]models.SyncRun, error) {
	pairs, err := o.pairs.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feed pairs: %w", err)
	}

	now := o.now()
	due := pairs[:0]
	for _, p := range pairs {
		if p.Due(now, o.cfg.DefaultInterval()) {
			due = append(due, p)
		}
	}
	return o.runPairs(ctx, due), nil
}

// RunMatching syncs enabled pairs filtered by unit and platform. Empty
// filters match everything.
func (o *Orchestrator) RunMatching(ctx context.Context, unitID string, platform models.Platform) ([]models.SyncRun, error) {
	pairs, err := o.pairs.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feed pairs: %w", err)
	}

	matched := pairs[:0]
	for _, p := range pairs {
		if (unitID == "" || p.UnitID == unitID) && (platform == "" || p.Platform == platform) {
			matched = append(matched, p)
		}
	}
	return o.runPairs(ctx, matched), nil
}

// Trigger syncs one registered pair immediately, enabled or not.
func (o *Orchestrator) Trigger(ctx context.Context, key models.PairKey) (*models.SyncRun, bool, error) {
	pair, err := o.pairs.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	run, skipped := o.RunPair(ctx, *pair)
	return run, skipped, nil
}

// runPairs syncs pairs on a bounded worker pool and returns the finished
// runs in pair order. Skipped pairs produce no run.
func (o *Orchestrator) runPairs(ctx context.Context, pairs []models.FeedPair) []models.SyncRun {
	results := make([]*models.SyncRun, len(pairs))

	var g errgroup.Group
	g.SetLimit(o.cfg.PoolSize)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			run, _ := o.RunPair(ctx, pair)
			results[i] = run
			return nil
		})
	}
	_ = g.Wait()

	runs := make([]models.SyncRun, 0, len(pairs))
	for _, r := range results {
		if r != nil {
			runs = append(runs, *r)
		}
	}
	return runs
}

// RunPair executes the pipeline for one pair. It reports skipped=true, with
// no run, when the pair is already being synced elsewhere.
func (o *Orchestrator) RunPair(ctx context.Context, pair models.FeedPair) (*models.SyncRun, bool) {
	key := pair.Key()

	ok, err := o.locks.TryAcquire(ctx, key)
	if err != nil {
		o.log.Warn("pair lock unavailable", zap.String("pair", key.String()), zap.Error(err))
		return nil, true
	}
	if !ok {
		o.log.Debug("pair busy, skipping", zap.String("pair", key.String()))
		return nil, true
	}
	defer func() {
		if err := o.locks.Release(context.WithoutCancel(ctx), key); err != nil {
			o.log.Warn("releasing pair lock", zap.String("pair", key.String()), zap.Error(err))
		}
	}()

	run := o.execute(ctx, pair)
	if err := o.recorder.Record(ctx, run); err != nil {
		o.log.Error("recording sync run", zap.String("pair", key.String()), zap.Error(err))
	}
	return run, false
}

func (o *Orchestrator) execute(ctx context.Context, pair models.FeedPair) *models.SyncRun {
	key := pair.Key()
	run := &models.SyncRun{
		ID:        uuid.NewString(),
		UnitID:    pair.UnitID,
		Platform:  pair.Platform,
		StartedAt: o.now().UTC(),
		Alerts:    []models.Alert{},
	}

	fetchStart := time.Now()
	body, err := o.fetcher.Fetch(ctx, pair)
	o.metrics.ObserveFetch(pair.Platform, time.Since(fetchStart))
	if err != nil {
		title := "Feed fetch failed"
		var fe *calendar.FetchError
		if errors.As(err, &fe) && fe.Timeout() {
			title = "Feed fetch timed out"
		}
		return o.fail(run, title, err)
	}

	events, err := o.parser.Parse(pair.UnitID, pair.Platform, body)
	if err != nil {
		if aerr := o.archive.StoreFailed(context.WithoutCancel(ctx), key, run.StartedAt, body); aerr != nil {
			o.log.Warn("archiving unreadable feed", zap.String("pair", key.String()), zap.Error(aerr))
		}
		return o.fail(run, "Feed unreadable", err)
	}
	run.EventsFound = len(events)

	snapshot, err := o.stager.Snapshot(ctx, key)
	if err != nil {
		return o.fail(run, "Snapshot lookup failed", err)
	}

	gate := calendar.CheckFingerprint(events, snapshot)
	run.Fingerprint = gate.Fingerprint
	if gate.Decision == calendar.GateUnchanged {
		return o.finish(run, models.OutcomeUnchanged)
	}

	res, err := o.stager.Reconcile(ctx, key, events, gate.Fingerprint)
	if err != nil {
		return o.fail(run, "Reconciliation failed", err)
	}

	run.Counts = res.Plan.Counts
	run.Counts.Conflicts = len(res.PairConflicts)
	run.Alerts = append(run.Alerts, res.Plan.Alerts...)
	if n := len(res.PairConflicts); n > 0 {
		run.AddAlert(models.AlertWarning, "Overlapping bookings",
			fmt.Sprintf("%d staged booking(s) from %s overlap other bookings in unit %s", n, pair.Platform, pair.UnitID))
	}

	if err := o.archive.StoreFeed(context.WithoutCancel(ctx), key, gate.Fingerprint, body); err != nil {
		o.log.Warn("archiving feed", zap.String("pair", key.String()), zap.Error(err))
	}
	return o.finish(run, models.OutcomeUpdated)
}

func (o *Orchestrator) fail(run *models.SyncRun, title string, err error) *models.SyncRun {
	run.Error = err.Error()
	run.Counts = models.SyncCounts{}
	run.AddAlert(models.AlertError, title, err.Error())
	return o.finish(run, models.OutcomeFailed)
}

func (o *Orchestrator) finish(run *models.SyncRun, outcome models.SyncOutcome) *models.SyncRun {
	run.Outcome = outcome
	run.FinishedAt = o.now().UTC()
	return run
}
