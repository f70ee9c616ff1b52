package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/booking-sync/backend/internal/api/middleware"
	"github.com/booking-sync/backend/internal/calendar"
	"github.com/booking-sync/backend/internal/storage"
	"github.com/booking-sync/backend/internal/storage/models"
)

// PairStore reads and toggles registered feed pairs.
type PairStore interface {
	List(ctx context.Context) ([]models.FeedPair, error)
	Get(ctx context.Context, key models.PairKey) (*models.FeedPair, error)
	SetEnabled(ctx context.Context, key models.PairKey, enabled bool) error
}

// SyncTrigger runs one pair immediately.
type SyncTrigger interface {
	Trigger(ctx context.Context, key models.PairKey) (*models.SyncRun, bool, error)
}

// RunLister lists recorded sync runs.
type RunLister interface {
	Runs(ctx context.Context, f storage.RunFilter) ([]models.SyncRun, error)
}

// PairResponse is a feed pair with its URL redacted.
type PairResponse struct {
	UnitID          string     `json:"unit_id"`
	Platform        string     `json:"platform"`
	URL             string     `json:"url"`
	SyncIntervalMin int        `json:"sync_interval_min"`
	Enabled         bool       `json:"enabled"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	LastOutcome     *string    `json:"last_outcome,omitempty"`
}

func toPairResponse(p models.FeedPair) PairResponse {
	return PairResponse{
		UnitID:          p.UnitID,
		Platform:        string(p.Platform),
		URL:             calendar.RedactURL(p.URL),
		SyncIntervalMin: p.SyncIntervalMin,
		Enabled:         p.Enabled,
		LastSyncAt:      p.LastSyncAt,
		LastOutcome:     p.LastOutcome,
	}
}

// pairKey reads {unit} and {platform} from the route.
func pairKey(r *http.Request) (models.PairKey, error) {
	vars := mux.Vars(r)
	p, err := models.ParsePlatform(vars["platform"])
	if err != nil {
		return models.PairKey{}, err
	}
	return models.PairKey{UnitID: vars["unit"], Platform: p}, nil
}

// ListPairs returns every registered feed pair.
func ListPairs(store PairStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pairs, err := store.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query feed pairs")
			return
		}

		response := make([]PairResponse, 0, len(pairs))
		for _, p := range pairs {
			response = append(response, toPairResponse(p))
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// GetPair returns one feed pair.
func GetPair(store PairStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := pairKey(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		pair, err := store.Get(r.Context(), key)
		if err != nil {
			writeStoreError(w, err, "Feed pair not found")
			return
		}
		writeJSON(w, http.StatusOK, toPairResponse(*pair))
	}
}

// UpdatePairRequest toggles a pair.
type UpdatePairRequest struct {
	Enabled *bool `json:"enabled"`
}

// UpdatePair enables or disables a feed pair.
func UpdatePair(store PairStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := pairKey(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		var req UpdatePairRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Enabled == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "enabled is required")
			return
		}

		ctx := r.Context()
		if err := store.SetEnabled(ctx, key, *req.Enabled); err != nil {
			writeStoreError(w, err, "Feed pair not found")
			return
		}
		pair, err := store.Get(ctx, key)
		if err != nil {
			writeStoreError(w, err, "Feed pair not found")
			return
		}
		writeJSON(w, http.StatusOK, toPairResponse(*pair))
	}
}

// TriggerSync runs a pair's pipeline now and returns the finished run.
// A pair already being synced answers 409.
func TriggerSync(trigger SyncTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := pairKey(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		run, skipped, err := trigger.Trigger(r.Context(), key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Feed pair not found")
			return
		case err != nil:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to start sync")
			return
		case skipped:
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Sync already in progress for "+key.String())
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// ListRuns returns recorded runs, newest first, filtered by ?unit= and ?platform=.
func ListRuns(runs RunLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := storage.RunFilter{UnitID: q.Get("unit"), Limit: queryLimit(r, 50, 500)}
		if s := q.Get("platform"); s != "" {
			p, err := models.ParsePlatform(s)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
				return
			}
			f.Platform = p
		}

		list, err := runs.Runs(r.Context(), f)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sync runs")
			return
		}
		if list == nil {
			list = []models.SyncRun{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
