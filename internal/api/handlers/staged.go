package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/booking-sync/backend/internal/api/middleware"
	"github.com/booking-sync/backend/internal/storage"
	"github.com/booking-sync/backend/internal/storage/models"
)

// ReviewQueue is the operator review surface over staged bookings.
type ReviewQueue interface {
	List(ctx context.Context, f storage.StagedFilter) ([]models.StagedRecord, error)
	Get(ctx context.Context, id string) (*models.StagedRecord, error)
	Confirm(ctx context.Context, id string) (*models.StagedRecord, error)
	Reject(ctx context.Context, id string) (*models.StagedRecord, error)
	Conflicts(ctx context.Context, unitID string) ([]models.ConflictRecord, error)
}

var stageStatuses = map[string]models.StageStatus{
	string(models.StagePending):    models.StagePending,
	string(models.StageConfirmed):  models.StageConfirmed,
	string(models.StageRejected):   models.StageRejected,
	string(models.StageSuperseded): models.StageSuperseded,
}

// ListStaged returns staged bookings filtered by ?unit=, ?platform= and ?status=.
func ListStaged(queue ReviewQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := storage.StagedFilter{UnitID: q.Get("unit"), Limit: queryLimit(r, 200, 1000)}

		if s := q.Get("platform"); s != "" {
			p, err := models.ParsePlatform(s)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
				return
			}
			f.Platform = p
		}
		if s := q.Get("status"); s != "" {
			status, ok := stageStatuses[s]
			if !ok {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Unknown status "+s)
				return
			}
			f.Status = status
		}

		recs, err := queue.List(r.Context(), f)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query staged bookings")
			return
		}
		if recs == nil {
			recs = []models.StagedRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

// GetStaged returns a single staged booking.
func GetStaged(queue ReviewQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := queue.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeStoreError(w, err, "Staged booking not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ConfirmStaged accepts a pending or superseded booking.
func ConfirmStaged(queue ReviewQueue) http.HandlerFunc {
	return decide(func(ctx context.Context, id string) (*models.StagedRecord, error) {
		return queue.Confirm(ctx, id)
	})
}

// RejectStaged dismisses a pending or superseded booking.
func RejectStaged(queue ReviewQueue) http.HandlerFunc {
	return decide(func(ctx context.Context, id string) (*models.StagedRecord, error) {
		return queue.Reject(ctx, id)
	})
}

func decide(fn func(ctx context.Context, id string) (*models.StagedRecord, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := fn(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeStoreError(w, err, "Staged booking not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// UnitConflicts returns the overlapping booking pairs stored for a unit.
func UnitConflicts(queue ReviewQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conflicts, err := queue.Conflicts(r.Context(), mux.Vars(r)["unit"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query conflicts")
			return
		}
		if conflicts == nil {
			conflicts = []models.ConflictRecord{}
		}
		writeJSON(w, http.StatusOK, conflicts)
	}
}
