// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/api/handlers"
	"github.com/booking-sync/backend/internal/api/middleware"
	"github.com/booking-sync/backend/internal/websocket"
)

// Deps are the services the API is served from. Hub, Scheduler and Gatherer
// may be nil. Services are resolved per request, so a router can be built
// from a partial Deps for routes that do not touch the missing ones.
type Deps struct {
	DB        handlers.Pinger
	Status    handlers.StatusSource
	Pairs     handlers.PairStore
	Trigger   handlers.SyncTrigger
	Runs      handlers.RunLister
	Review    handlers.ReviewQueue
	Hub       *websocket.Hub
	Scheduler handlers.NextRunner
	// Gatherer enables the metrics endpoint at MetricsPath.
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Log         *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(cfg Config, d Deps) *mux.Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	var hub handlers.ClientCounter
	if d.Hub != nil {
		hub = d.Hub
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, log)).Methods("GET")
	}
	api.HandleFunc("/status", handlers.Status(d.Status, hub, d.Scheduler, cfg.AlertLimit)).Methods("GET")

	// Feed pairs and runs
	api.HandleFunc("/pairs", handlers.ListPairs(d.Pairs)).Methods("GET")
	api.HandleFunc("/pairs/{unit}/{platform}", handlers.GetPair(d.Pairs)).Methods("GET")
	api.HandleFunc("/pairs/{unit}/{platform}", handlers.UpdatePair(d.Pairs)).Methods("PATCH")
	api.HandleFunc("/pairs/{unit}/{platform}/sync", handlers.TriggerSync(d.Trigger)).Methods("POST")
	api.HandleFunc("/runs", handlers.ListRuns(d.Runs)).Methods("GET")

	// Review queue
	api.HandleFunc("/staged", handlers.ListStaged(d.Review)).Methods("GET")
	api.HandleFunc("/staged/{id}", handlers.GetStaged(d.Review)).Methods("GET")
	api.HandleFunc("/staged/{id}/confirm", handlers.ConfirmStaged(d.Review)).Methods("POST")
	api.HandleFunc("/staged/{id}/reject", handlers.RejectStaged(d.Review)).Methods("POST")
	api.HandleFunc("/units/{unit}/conflicts", handlers.UnitConflicts(d.Review)).Methods("GET")

	if d.Gatherer != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
