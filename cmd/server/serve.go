package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/api"
	"github.com/booking-sync/backend/internal/syncer"
	"github.com/booking-sync/backend/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API",
	Long:  `Starts the sync scheduler, the operator API and the websocket event stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := websocket.NewHub(log)
		go hub.Run(ctx)

		a, err := newApp(ctx, cfg, log, hub)
		if err != nil {
			return err
		}
		defer a.Close()

		scheduler := syncer.NewScheduler(a.orch, cfg.Sync.Schedule, log)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}

		deps := api.Deps{
			DB:          a.db,
			Status:      a.ledger,
			Pairs:       a.feeds,
			Trigger:     a.orch,
			Runs:        a.ledger,
			Review:      a.queue,
			Hub:         hub,
			Scheduler:   scheduler,
			MetricsPath: cfg.Metrics.Path,
			Log:         log,
		}
		if a.registry != nil {
			deps.Gatherer = a.registry
		}

		server := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      api.NewRouter(cfg.Server, deps),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * cfg.Sync.FetchTimeout,
			IdleTimeout:  60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.Info("server listening", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				scheduler.Stop()
				return err
			}
		}

		log.Info("shutting down")
		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
