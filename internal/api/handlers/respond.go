package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/booking-sync/backend/internal/api/middleware"
	"github.com/booking-sync/backend/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStoreError maps storage sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, notFound)
	case errors.Is(err, storage.ErrInvalidTransition):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Internal error")
	}
}

// queryLimit reads ?limit=, falling back to def when absent or invalid.
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
