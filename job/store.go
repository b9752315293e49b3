package job

import (
	"context"
	"time"

	"github.com/dispatched-dev/dispatched/id"
)

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	// Status filters by job status. Empty means all statuses.
	Status Status
}

// Store defines the persistence contract for jobs. Records are never
// deleted; they live for the duration of the process.
type Store interface {
	// CreateJob persists a new job record.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob replaces the full record for an existing job.
	UpdateJob(ctx context.Context, j *Job) error

	// ClaimJob atomically transitions a QUEUED job to DISPATCHED and
	// stamps the attempt ID, returning the claimed record. A job in any
	// other status cannot be claimed: the check and the write happen
	// under one store operation, so at most one of several concurrent
	// dispatch paths wins the claim.
	ClaimJob(ctx context.Context, jobID id.JobID, attemptID id.AttemptID) (*Job, error)

	// ListReadyJobs returns queued jobs whose scheduled time plus delay
	// has elapsed at now, in insertion order. Insertion order is the
	// only ordering guarantee.
	ListReadyJobs(ctx context.Context, now time.Time, delay time.Duration) ([]*Job, error)

	// CountJobs returns the number of jobs matching the given options.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
