package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler ticks on a cron spec and syncs every pair that is due.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	spec         string
	log          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Overlapping ticks are skipped rather
// than queued, so a slow round never stacks up behind itself.
func NewScheduler(o *Orchestrator, spec string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = "@every 1m"
	}
	cl := cronLogger{log: log.Sugar()}
	return &Scheduler{
		cron:         cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		orchestrator: o,
		spec:         spec,
		log:          log,
	}
}

// Start registers the tick and starts the cron runner. Runs are cancelled
// when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		s.cancel()
		return fmt.Errorf("scheduling sync tick %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("sync scheduler started", zap.String("schedule", s.spec))
	return nil
}

// Stop halts the ticks and waits for a running round to finish.
func (s *Scheduler) Stop() {
	s.log.Info("stopping sync scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.log.Info("sync scheduler stopped")
}

// NextRun returns when the next tick fires, or zero before Start.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	runs, err := s.orchestrator.RunDue(s.ctx)
	if err != nil {
		s.log.Error("sync tick failed", zap.Error(err))
		return
	}
	if len(runs) > 0 {
		s.log.Debug("sync tick finished", zap.Int("runs", len(runs)))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
