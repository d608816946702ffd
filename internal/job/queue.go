package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrDuplicateJob is returned when a live job with the same id already
	// exists. The caller must wait for it to resolve.
	ErrDuplicateJob = errors.New("a live job with this id already exists")

	// ErrJobActive is returned by Remove for jobs a worker currently owns;
	// removal is only defined for non-active jobs.
	ErrJobActive = errors.New("job is active and cannot be removed")
)

// Queue is a durable at-least-once work queue: every job is persisted in
// waiting state before it is dispatched on the in-memory channel workers
// consume from. Durable identity plus deterministic job ids make enqueue
// idempotent per generation attempt; Recover replays anything a crash left
// behind.
type Queue struct {
	jobs   Store
	ch     chan *Record
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a new queue with the specified dispatch buffer size.
func NewQueue(jobs Store, size int, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:   jobs,
		ch:     make(chan *Record, size),
		logger: logger.With("component", "job_queue"),
	}
}

// Enqueue persists a job under the given id and dispatches it to the worker
// channel. Returns ErrDuplicateJob when a live entry with the same id
// exists; a resolved stale entry must be removed by the caller first (see
// Lookup/Remove), mirroring the orchestrator's stale-job guard.
func (q *Queue) Enqueue(ctx context.Context, id string, payload Payload) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	// Timestamps are stamped here, not by the store: recovery replays
	// waiting jobs oldest-first, so every row needs a real created_at.
	now := time.Now().UTC()
	rec := &Record{
		ID:        id,
		Payload:   data,
		State:     StateWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.jobs.CreateJob(ctx, rec); err != nil {
		if errors.Is(err, store.ErrJobExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
		}
		return fmt.Errorf("failed to persist job: %w", err)
	}

	q.dispatch(rec)
	return nil
}

// Lookup returns the current state of the job with the given id, or
// StateAbsent when no such job exists.
func (q *Queue) Lookup(ctx context.Context, id string) (State, error) {
	rec, err := q.jobs.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return StateAbsent, nil
		}
		return StateAbsent, fmt.Errorf("failed to look up job: %w", err)
	}
	return rec.State, nil
}

// Remove deletes a non-active job entry. Removing an active job is undefined
// (a worker owns it) and returns ErrJobActive. Removing an absent job is a
// no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	rec, err := q.jobs.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up job for removal: %w", err)
	}

	if rec.State == StateActive {
		return fmt.Errorf("%w: %s", ErrJobActive, id)
	}

	if err := q.jobs.DeleteJob(ctx, id); err != nil && !errors.Is(err, store.ErrJobNotFound) {
		return fmt.Errorf("failed to remove job: %w", err)
	}

	q.logger.Debug("removed stale job", "job_id", id, "state", rec.State)
	return nil
}

// MarkActive records worker pickup of a job.
func (q *Queue) MarkActive(ctx context.Context, id string) error {
	return q.jobs.UpdateJobState(ctx, id, StateActive)
}

// Resolve marks a job as terminally handled. The entry stays in the store as
// a stale marker until the next enqueue for the same id sweeps it.
func (q *Queue) Resolve(ctx context.Context, id string) error {
	return q.jobs.UpdateJobState(ctx, id, StateResolved)
}

// Jobs returns the read-only channel workers consume from.
func (q *Queue) Jobs() <-chan *Record {
	return q.ch
}

// Recover replays jobs a previous process left unfinished: waiting jobs are
// re-dispatched as-is, and active jobs (orphaned by a crash mid-execution)
// are reset to waiting and re-dispatched. This is what makes delivery
// at-least-once across restarts.
func (q *Queue) Recover(ctx context.Context) error {
	waiting, err := q.jobs.ListJobsByState(ctx, StateWaiting)
	if err != nil {
		return fmt.Errorf("failed to list waiting jobs: %w", err)
	}

	orphaned, err := q.jobs.ListJobsByState(ctx, StateActive)
	if err != nil {
		return fmt.Errorf("failed to list active jobs: %w", err)
	}

	q.logger.Info("recovering unfinished jobs",
		"waiting_count", len(waiting),
		"orphaned_count", len(orphaned))

	for _, rec := range waiting {
		q.dispatch(rec)
	}

	for _, rec := range orphaned {
		if err := q.jobs.UpdateJobState(ctx, rec.ID, StateWaiting); err != nil {
			q.logger.Error("failed to reset orphaned job",
				"job_id", rec.ID,
				"error", err)
			continue
		}
		rec.State = StateWaiting
		q.dispatch(rec)
	}

	return nil
}

// Close closes the queue, preventing further submissions.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
		q.logger.Info("job queue closed")
	}
}

// dispatch hands a record to the worker channel without blocking. A full
// channel is not an error: the job is already durable in waiting state and
// the next Recover pass will re-dispatch it.
func (q *Queue) dispatch(rec *Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue closed, job left waiting for recovery", "job_id", rec.ID)
		return
	}

	select {
	case q.ch <- rec:
		q.logger.Debug("job dispatched",
			"job_id", rec.ID,
			"queue_len", len(q.ch),
			"queue_cap", cap(q.ch))
	default:
		q.logger.Warn("dispatch channel full, job left waiting for recovery",
			"job_id", rec.ID)
	}
}
