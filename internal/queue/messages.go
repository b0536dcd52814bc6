package queue

import "github.com/sevenvista/MB-TSP/internal/warehouse"

// Job result statuses on the wire.
const (
	StatusComplete = "complete"
	StatusError    = "error"
)

// MapRequest asks for a map to be processed into a distance table.
type MapRequest struct {
	Map   [][]warehouse.Cell `json:"map"`
	MapID string             `json:"mapid"`
}

// MapResponse reports the outcome of a map-processing job. The job id is
// assigned by the service, since the request carries none.
type MapResponse struct {
	JobID        string `json:"jobid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errormessage,omitempty"`
}

// TourRequest asks for a visiting order over points of interest on a
// previously processed map.
type TourRequest struct {
	JobID  string   `json:"jobid"`
	MapID  string   `json:"mapid"`
	Points []string `json:"point_of_interest"`
}

// TourResponse carries the reordered points, or null on error.
type TourResponse struct {
	Points       []string `json:"point_of_interest"`
	JobID        string   `json:"jobid"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"errormessage,omitempty"`
}
