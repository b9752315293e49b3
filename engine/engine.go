// Package engine implements the job intake and update operations:
// create, get, reschedule, and cancel. It owns the immediate-vs-deferred
// dispatch decision; jobs it defers are picked up later by the scanner.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dispatched-dev/dispatched"
	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

// Dispatcher is the callback the engine uses for immediate deliveries.
// delivery.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID id.JobID) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow sets the clock. For testing.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine exposes the job lifecycle operations consumed by the request
// layer.
type Engine struct {
	store      job.Store
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an Engine.
func New(store job.Store, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateParams are the inputs for CreateJob.
type CreateParams struct {
	// ScheduledFor is the earliest delivery moment. Nil means now.
	ScheduledFor *time.Time

	// Payload is caller-supplied opaque data, passed through unmodified.
	Payload json.RawMessage
}

// CreateJob creates a new QUEUED job. If the scheduled time is at or
// before now, a delivery attempt is spawned as part of the call; the
// returned record reflects the job state at the moment the call returns,
// which may already be terminal if the attempt finished first.
//
// The immediate-dispatch threshold is strictly "scheduled time has
// elapsed"; there is no lookahead buffer.
func (e *Engine) CreateJob(ctx context.Context, params CreateParams) (*job.Job, error) {
	now := e.now()

	scheduledFor := now
	if params.ScheduledFor != nil {
		scheduledFor = params.ScheduledFor.UTC()
	}

	j := &job.Job{
		ID:           id.NewJobID(),
		Status:       job.StatusQueued,
		ScheduledFor: scheduledFor,
		Payload:      params.Payload,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateJob(ctx, j); err != nil {
		return nil, err
	}

	e.logger.Info("job created",
		slog.String("job_id", j.ID.String()),
		slog.Time("scheduled_for", j.ScheduledFor),
	)

	if !scheduledFor.After(now) {
		e.dispatchAsync(j.ID)
	}

	// Re-read so the response carries the state as of this moment, not
	// the state at insert time.
	return e.store.GetJob(ctx, j.ID)
}

// GetJob returns the current record for a job.
func (e *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return e.store.GetJob(ctx, jobID)
}

// RescheduleJob moves a QUEUED job to a new scheduled time. A zero time
// is rejected with ErrInvalidRequest; a non-QUEUED job is rejected with
// ErrInvalidState. If the new time is at or before now, a delivery
// attempt is spawned fire-and-forget; the returned record reflects the
// job before that attempt's outcome lands.
func (e *Engine) RescheduleJob(ctx context.Context, jobID id.JobID, scheduledFor time.Time) (*job.Job, error) {
	if scheduledFor.IsZero() {
		return nil, dispatched.ErrInvalidRequest
	}

	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusQueued {
		return nil, dispatched.ErrInvalidState
	}

	j.ScheduledFor = scheduledFor.UTC()
	if err := e.store.UpdateJob(ctx, j); err != nil {
		return nil, err
	}

	e.logger.Info("job rescheduled",
		slog.String("job_id", j.ID.String()),
		slog.Time("scheduled_for", j.ScheduledFor),
	)

	updated, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !j.ScheduledFor.After(e.now()) {
		e.dispatchAsync(jobID)
	}

	return updated, nil
}

// CancelJob cancels a QUEUED job. Cancelling is cooperative: a dispatch
// that already claimed the job still completes, and its outcome
// overwrites CANCELLED.
func (e *Engine) CancelJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusQueued {
		return nil, dispatched.ErrInvalidState
	}

	j.Status = job.StatusCancelled
	if err := e.store.UpdateJob(ctx, j); err != nil {
		return nil, err
	}

	e.logger.Info("job cancelled", slog.String("job_id", j.ID.String()))

	return e.store.GetJob(ctx, jobID)
}

// Stats returns job counts by status for the stats endpoint.
func (e *Engine) Stats(ctx context.Context) (map[job.Status]int64, error) {
	statuses := []job.Status{
		job.StatusQueued,
		job.StatusDispatched,
		job.StatusCompleted,
		job.StatusFailed,
		job.StatusCancelled,
	}

	out := make(map[job.Status]int64, len(statuses))
	for _, st := range statuses {
		n, err := e.store.CountJobs(ctx, job.CountOpts{Status: st})
		if err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, nil
}

// dispatchAsync spawns a delivery attempt the caller does not wait on.
// The request context is not reused: the attempt must survive the
// response being written.
func (e *Engine) dispatchAsync(jobID id.JobID) {
	go func() {
		if err := e.dispatcher.Dispatch(context.Background(), jobID); err != nil {
			e.logger.Error("dispatch error",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()
}
