package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DistanceRecord is one undirected pairwise distance in a map's table.
// Distance is a non-negative step count, or -1 when the pair is
// disconnected. The JSON shape is the persisted wire format.
type DistanceRecord struct {
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	Distance int    `json:"distance"`
}

// Job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job kinds.
const (
	JobKindBuildDistances = "build-distances"
	JobKindSolveTour      = "solve-tour"
)

// Job is one processed (or in-flight) orchestrator job, kept for history.
type Job struct {
	ID        string
	Kind      string
	MapID     string
	Status    string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
