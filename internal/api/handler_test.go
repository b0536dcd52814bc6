package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sevenvista/MB-TSP/internal/storage"
)

type fakeStore struct {
	distances map[string][]storage.DistanceRecord
	jobs      []storage.Job
	lastLimit int
}

func (f *fakeStore) GetDistances(mapID string) ([]storage.DistanceRecord, error) {
	recs, ok := f.distances[mapID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return recs, nil
}

func (f *fakeStore) RecentJobs(limit int) ([]storage.Job, error) {
	f.lastLimit = limit
	if limit < len(f.jobs) {
		return f.jobs[:limit], nil
	}
	return f.jobs, nil
}

func newTestHandler(store *fakeStore) http.Handler {
	return NewHandler(Deps{
		Store: store,
		Queues: QueueInfo{
			MapRequest:   "mapreq",
			MapResponse:  "mapresp",
			TourRequest:  "tspreq",
			TourResponse: "tspresp",
		},
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, newTestHandler(&fakeStore{}), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("body = %v, want healthy", body)
	}
}

func TestRootReportsQueues(t *testing.T) {
	w := get(t, newTestHandler(&fakeStore{}), "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Service string    `json:"service"`
		Queues  QueueInfo `json:"queues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Service != "mbtsp" {
		t.Errorf("service = %q, want mbtsp", body.Service)
	}
	if body.Queues.MapRequest != "mapreq" || body.Queues.TourResponse != "tspresp" {
		t.Errorf("queues = %+v", body.Queues)
	}
}

func TestDistancesFound(t *testing.T) {
	store := &fakeStore{distances: map[string][]storage.DistanceRecord{
		"wh": {
			{FromID: "s1", ToID: "s2", Distance: 4},
			{FromID: "dock", ToID: "s1", Distance: -1},
		},
	}}

	w := get(t, newTestHandler(store), "/maps/wh/distances")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var recs []storage.DistanceRecord
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(recs) != 2 || recs[0].FromID != "s1" || recs[1].Distance != -1 {
		t.Errorf("records = %+v", recs)
	}
}

func TestDistancesNotFound(t *testing.T) {
	w := get(t, newTestHandler(&fakeStore{}), "/maps/nope/distances")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] == "" {
		t.Error("404 body carries no error message")
	}
}

func TestJobsListing(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{jobs: []storage.Job{
		{ID: "j2", Kind: storage.JobKindSolveTour, MapID: "wh", Status: storage.JobStatusFailed, LastError: "boom", CreatedAt: now, UpdatedAt: now},
		{ID: "j1", Kind: storage.JobKindBuildDistances, MapID: "wh", Status: storage.JobStatusCompleted, CreatedAt: now, UpdatedAt: now},
	}}

	w := get(t, newTestHandler(store), "/jobs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.lastLimit != defaultJobsLimit {
		t.Errorf("default limit = %d, want %d", store.lastLimit, defaultJobsLimit)
	}

	var views []struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Error     string `json:"error"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d jobs, want 2", len(views))
	}
	if views[0].ID != "j2" || views[0].Error != "boom" {
		t.Errorf("first job = %+v", views[0])
	}
	if views[0].CreatedAt != "2025-06-01T10:00:00Z" {
		t.Errorf("created_at = %q, want RFC3339", views[0].CreatedAt)
	}
}

func TestJobsCustomLimit(t *testing.T) {
	store := &fakeStore{jobs: []storage.Job{{ID: "j1"}, {ID: "j2"}, {ID: "j3"}}}

	w := get(t, newTestHandler(store), "/jobs?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.lastLimit != 2 {
		t.Errorf("limit passed to store = %d, want 2", store.lastLimit)
	}
}

func TestJobsBadLimit(t *testing.T) {
	for _, v := range []string{"abc", "0", "-3"} {
		w := get(t, newTestHandler(&fakeStore{}), "/jobs?limit="+v)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", v, w.Code)
		}
	}
}
