// Package api exposes the read-only HTTP status surface: health checks,
// persisted distance tables, and job history.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevenvista/MB-TSP/internal/storage"
)

const defaultJobsLimit = 50

// Store is the storage surface the API reads from.
type Store interface {
	GetDistances(mapID string) ([]storage.DistanceRecord, error)
	RecentJobs(limit int) ([]storage.Job, error)
}

// Deps carries handler dependencies and the queue names reported by the
// root endpoint.
type Deps struct {
	Store  Store
	Queues QueueInfo
}

// QueueInfo mirrors the broker queue names for the status endpoint.
type QueueInfo struct {
	MapRequest   string `json:"map_request"`
	MapResponse  string `json:"map_response"`
	TourRequest  string `json:"tsp_request"`
	TourResponse string `json:"tsp_response"`
}

// NewHandler builds the HTTP router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth())
	r.Get("/maps/{mapID}/distances", handleDistances(deps))
	r.Get("/jobs", handleJobs(deps))

	return r
}

func handleRoot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "running",
			"service": "mbtsp",
			"queues":  deps.Queues,
		})
	}
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// handleDistances serves a persisted distance table in its wire format:
// a JSON array of {from_id, to_id, distance}.
func handleDistances(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mapID := chi.URLParam(r, "mapID")
		recs, err := deps.Store.GetDistances(mapID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "no distance table for mapid %q", mapID)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading distance table: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleJobs(deps Deps) http.HandlerFunc {
	type jobView struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		MapID     string `json:"mapid,omitempty"`
		Status    string `json:"status"`
		Error     string `json:"error,omitempty"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultJobsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid limit %q", v)
				return
			}
			limit = n
		}

		jobs, err := deps.Store.RecentJobs(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing jobs: %v", err)
			return
		}

		views := make([]jobView, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, jobView{
				ID:        j.ID,
				Kind:      j.Kind,
				MapID:     j.MapID,
				Status:    j.Status,
				Error:     j.LastError,
				CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339),
				UpdatedAt: j.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}
