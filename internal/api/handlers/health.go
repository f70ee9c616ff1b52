// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/booking-sync/backend/internal/api/middleware"
	"github.com/booking-sync/backend/internal/syncer"
)

// Pinger checks the database connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbConnected := db.PingContext(ctx) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, HealthResponse{Status: status, DBConnected: dbConnected})
	}
}

// StatusSource reports the sync status surface.
type StatusSource interface {
	Status(ctx context.Context, alertLimit int) (*syncer.Status, error)
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// NextRunner reports when the scheduler ticks next.
type NextRunner interface {
	NextRun() time.Time
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	*syncer.Status
	WebSocketClients int    `json:"websocket_clients"`
	NextTickAt       string `json:"next_tick_at,omitempty"`
}

// Status returns a handler with the last sync per unit, the number of
// bookings awaiting review and the most recent alerts. hub and next may be nil.
func Status(src StatusSource, hub ClientCounter, next NextRunner, alertLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := src.Status(r.Context(), alertLimit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load status")
			return
		}

		response := StatusResponse{Status: st}
		if hub != nil {
			response.WebSocketClients = hub.ClientCount()
		}
		if next != nil {
			if at := next.NextRun(); !at.IsZero() {
				response.NextTickAt = at.UTC().Format(time.RFC3339)
			}
		}
		writeJSON(w, http.StatusOK, response)
	}
}
