// Package queue is the message-transport edge of the service: typed job
// payloads, the broker contract the orchestrator consumes, and a
// RabbitMQ implementation.
package queue

import "context"

// JobKind discriminates the two job streams.
type JobKind string

const (
	KindBuildDistances JobKind = "build-distances"
	KindSolveTour      JobKind = "solve-tour"
)

// Delivery is one inbound job payload. Ack, when non-nil, must be called
// exactly once after the job has produced its response.
type Delivery struct {
	Kind JobKind
	Body []byte
	Ack  func()
}

// Broker moves job requests in and job responses out. Implementations
// own queue topology and delivery mechanics; the orchestrator only sees
// typed kinds and raw JSON bodies.
type Broker interface {
	// Consume starts delivering jobs from both request streams until ctx
	// is cancelled. The returned channel is closed when consumption
	// stops.
	Consume(ctx context.Context) (<-chan Delivery, error)

	// Publish sends a response body on the response stream matching kind.
	Publish(ctx context.Context, kind JobKind, body []byte) error

	// Close releases transport resources.
	Close() error
}
