// Package orchestrator consumes map-processing and tour jobs from the
// broker, runs them on a bounded worker pool, and publishes exactly one
// response per job.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/sevenvista/MB-TSP/internal/queue"
	"github.com/sevenvista/MB-TSP/internal/storage"
	"github.com/sevenvista/MB-TSP/internal/tsp"
	"github.com/sevenvista/MB-TSP/internal/warehouse"
)

// Store is the storage surface the orchestrator consumes.
type Store interface {
	GetDistances(mapID string) ([]storage.DistanceRecord, error)
	SaveJob(job storage.Job) error
	CompleteJob(id string) error
	FailJob(id, errMsg string) error
}

// MapProcessor builds and persists a distance table from a raw map.
type MapProcessor interface {
	Process(ctx context.Context, raw [][]warehouse.Cell, mapID string) (int, error)
}

// TourSolver orders points of interest over a distance table.
type TourSolver interface {
	Solve(t *tsp.Table, points []string) ([]string, error)
}

// Orchestrator is the job dispatch loop. Intake keeps consuming while
// jobs execute on the pool; a slow solve does not block new jobs, and a
// full pool applies backpressure to intake instead of queueing
// unboundedly.
type Orchestrator struct {
	broker  queue.Broker
	builder MapProcessor
	solver  TourSolver
	store   Store
	sem     *semaphore.Weighted
	workers int
	logger  *slog.Logger
}

// New creates an Orchestrator. If workers is <= 0, it defaults to the
// number of CPUs.
func New(broker queue.Broker, builder MapProcessor, solver TourSolver, store Store, workers int) *Orchestrator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Orchestrator{
		broker:  broker,
		builder: builder,
		solver:  solver,
		store:   store,
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		logger:  slog.Default(),
	}
}

// Run consumes jobs until ctx is cancelled, then waits for in-flight
// jobs to finish.
func (o *Orchestrator) Run(ctx context.Context) error {
	deliveries, err := o.broker.Consume(ctx)
	if err != nil {
		return fmt.Errorf("starting consumer: %w", err)
	}
	o.logger.Info("orchestrator started", "workers", o.workers)

	var wg sync.WaitGroup
	for d := range deliveries {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(d queue.Delivery) {
			defer wg.Done()
			defer o.sem.Release(1)
			o.handle(ctx, d)
		}(d)
	}

	wg.Wait()
	o.logger.Info("orchestrator stopped")
	return nil
}

func (o *Orchestrator) handle(ctx context.Context, d queue.Delivery) {
	switch d.Kind {
	case queue.KindBuildDistances:
		o.handleMap(ctx, d.Body)
	case queue.KindSolveTour:
		o.handleTour(ctx, d.Body)
	default:
		o.logger.Error("unknown job kind", "kind", d.Kind)
	}
	if d.Ack != nil {
		d.Ack()
	}
}

// handleMap runs one build-distances job and publishes its result. The
// service assigns the job id.
func (o *Orchestrator) handleMap(ctx context.Context, body []byte) {
	jobID := uuid.New().String()

	var req queue.MapRequest
	if err := json.Unmarshal(body, &req); err != nil {
		err = fmt.Errorf("parsing map request: %w", err)
		recorded := o.recordStart(jobID, storage.JobKindBuildDistances, "")
		o.recordEnd(recorded, jobID, err)
		o.publish(ctx, queue.KindBuildDistances, queue.MapResponse{
			JobID:        jobID,
			Status:       queue.StatusError,
			ErrorMessage: err.Error(),
		})
		return
	}

	recorded := o.recordStart(jobID, storage.JobKindBuildDistances, req.MapID)
	err := o.runJob(func() error {
		_, perr := o.builder.Process(ctx, req.Map, req.MapID)
		return perr
	})
	o.recordEnd(recorded, jobID, err)

	resp := queue.MapResponse{JobID: jobID, Status: queue.StatusComplete}
	if err != nil {
		resp.Status = queue.StatusError
		resp.ErrorMessage = err.Error()
		o.logger.Warn("map job failed", "job_id", jobID, "map_id", req.MapID, "error", err)
	} else {
		o.logger.Info("map job completed", "job_id", jobID, "map_id", req.MapID)
	}
	o.publish(ctx, queue.KindBuildDistances, resp)
}

// handleTour runs one solve-tour job and publishes its result, echoing
// the request's job id.
func (o *Orchestrator) handleTour(ctx context.Context, body []byte) {
	var req queue.TourRequest
	if err := json.Unmarshal(body, &req); err != nil {
		o.publish(ctx, queue.KindSolveTour, queue.TourResponse{
			JobID:        req.JobID,
			Status:       queue.StatusError,
			ErrorMessage: fmt.Sprintf("parsing tour request: %v", err),
		})
		return
	}

	historyID := req.JobID
	if historyID == "" {
		historyID = uuid.New().String()
	}
	recorded := o.recordStart(historyID, storage.JobKindSolveTour, req.MapID)

	var order []string
	err := o.runJob(func() error {
		recs, lerr := o.store.GetDistances(req.MapID)
		if lerr != nil {
			if errors.Is(lerr, storage.ErrNotFound) {
				return fmt.Errorf("no distance table for mapid %q", req.MapID)
			}
			return fmt.Errorf("loading distance table for mapid %q: %w", req.MapID, lerr)
		}
		var serr error
		order, serr = o.solver.Solve(buildTable(recs), req.Points)
		return serr
	})
	o.recordEnd(recorded, historyID, err)

	resp := queue.TourResponse{JobID: req.JobID, Status: queue.StatusComplete, Points: order}
	if err != nil {
		resp.Status = queue.StatusError
		resp.ErrorMessage = err.Error()
		resp.Points = nil
		o.logger.Warn("tour job failed", "job_id", req.JobID, "map_id", req.MapID, "error", err)
	} else {
		o.logger.Info("tour job completed", "job_id", req.JobID, "map_id", req.MapID, "stops", len(order))
	}
	o.publish(ctx, queue.KindSolveTour, resp)
}

// runJob executes fn, converting a panic into a job failure so one bad
// job cannot take down the dispatch loop.
func (o *Orchestrator) runJob(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal panic: %v", r)
		}
	}()
	return fn()
}

// buildTable indexes persisted records for solver lookups. Records are
// undirected; Table handles reverse lookups.
func buildTable(recs []storage.DistanceRecord) *tsp.Table {
	t := tsp.NewTable()
	for _, r := range recs {
		t.Set(r.FromID, r.ToID, r.Distance)
	}
	return t
}

// recordStart inserts a running job history row; history is best effort
// and never fails the job itself.
func (o *Orchestrator) recordStart(id, kind, mapID string) bool {
	err := o.store.SaveJob(storage.Job{ID: id, Kind: kind, MapID: mapID, Status: storage.JobStatusRunning})
	if err != nil {
		o.logger.Warn("failed to record job", "job_id", id, "error", err)
		return false
	}
	return true
}

func (o *Orchestrator) recordEnd(recorded bool, id string, jobErr error) {
	if !recorded {
		return
	}
	var err error
	if jobErr != nil {
		err = o.store.FailJob(id, jobErr.Error())
	} else {
		err = o.store.CompleteJob(id)
	}
	if err != nil {
		o.logger.Warn("failed to update job status", "job_id", id, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, kind queue.JobKind, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		o.logger.Error("encoding response failed", "kind", kind, "error", err)
		return
	}
	if err := o.broker.Publish(ctx, kind, body); err != nil {
		o.logger.Error("publishing response failed", "kind", kind, "error", err)
	}
}
