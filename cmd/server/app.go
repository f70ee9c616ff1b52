package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/archive"
	"github.com/booking-sync/backend/internal/calendar"
	"github.com/booking-sync/backend/internal/config"
	"github.com/booking-sync/backend/internal/metrics"
	"github.com/booking-sync/backend/internal/review"
	"github.com/booking-sync/backend/internal/storage"
	"github.com/booking-sync/backend/internal/syncer"
	"github.com/booking-sync/backend/internal/websocket"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *storage.DB
	feeds    *storage.FeedRepository
	hub      *websocket.Hub
	registry *prometheus.Registry
	queue    *review.Queue
	ledger   *syncer.Ledger
	orch     *syncer.Orchestrator
}

// newApp opens the database, applies migrations and wires the pipeline.
// hub may be nil for one-shot commands.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, hub *websocket.Hub) (*app, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := storage.RunMigrations(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	var (
		reg *prometheus.Registry
		m   *metrics.SyncMetrics
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		m = metrics.NewSyncMetrics(reg)
	}

	arch, err := archive.FromConfig(ctx, cfg.Archive, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing feed archive: %w", err)
	}

	var locks syncer.PairLocker = syncer.NewMemoryLocker()
	if cfg.Sync.LockBackend == syncer.LockBackendDatabase {
		locks = storage.NewLockRepository(db, cfg.Sync.LockTTL)
	}

	var events *websocket.EventBroadcaster
	if hub != nil {
		events = websocket.NewEventBroadcaster(hub, log)
	}
	feeds := storage.NewFeedRepository(db)
	queue := review.NewQueue(db, events, log)
	ledger := syncer.NewLedger(db, events, m, log)

	orch := syncer.NewOrchestrator(cfg.Sync, syncer.Deps{
		Pairs:    feeds,
		Fetcher:  calendar.NewFetcher(cfg.Sync.FetchTimeout, cfg.Sync.MaxFeedBytes, log),
		Parser:   calendar.NewParser(log),
		Stager:   queue,
		Recorder: ledger,
		Locks:    locks,
		Archive:  arch,
		Metrics:  m,
	}, log)

	log.Info("pipeline ready",
		zap.String("database", db.Path()),
		zap.String("lock_backend", cfg.Sync.LockBackend),
		zap.Bool("archive", arch != nil),
		zap.Bool("metrics", m != nil),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		feeds:    feeds,
		hub:      hub,
		registry: reg,
		queue:    queue,
		ledger:   ledger,
		orch:     orch,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
