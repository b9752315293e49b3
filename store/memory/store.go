// Package memory provides a fully in-memory implementation of job.Store.
// Safe for concurrent access. State is lost when the process exits,
// which is the intended behavior for a local dev simulator.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dispatched-dev/dispatched"
	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

// Ensure Store implements job.Store at compile time.
var _ job.Store = (*Store)(nil)

// Store is a mutex-guarded map of job ID → record. Every read and write
// copies the record, so no caller ever observes a partially-updated job.
type Store struct {
	mu sync.RWMutex

	jobs map[string]*job.Job

	// seq records insertion order per job key. ListReadyJobs sorts by it
	// so ready jobs come back FIFO regardless of map iteration order.
	seq     map[string]uint64
	nextSeq uint64
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs: make(map[string]*job.Job),
		seq:  make(map[string]uint64),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// CreateJob persists a new job record.
func (m *Store) CreateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return dispatched.ErrJobAlreadyExists
	}

	cp := *j
	m.jobs[key] = &cp
	m.seq[key] = m.nextSeq
	m.nextSeq++
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, dispatched.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// UpdateJob replaces the record for an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, ok := m.jobs[key]; !ok {
		return dispatched.ErrJobNotFound
	}
	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = &cp
	return nil
}

// ClaimJob atomically transitions a QUEUED job to DISPATCHED and stamps
// the attempt ID. The status check and the write happen under one lock,
// so exactly one of several concurrent claims for the same job succeeds.
func (m *Store) ClaimJob(_ context.Context, jobID id.JobID, attemptID id.AttemptID) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, dispatched.ErrJobNotFound
	}
	if j.Status != job.StatusQueued {
		return nil, dispatched.ErrInvalidState
	}

	j.Status = job.StatusDispatched
	j.AttemptID = attemptID
	j.UpdatedAt = time.Now().UTC()

	cp := *j
	return &cp, nil
}

// ListReadyJobs returns queued jobs whose scheduled time plus delay has
// elapsed at now, FIFO by insertion order.
func (m *Store) ListReadyJobs(_ context.Context, now time.Time, delay time.Duration) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ready := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.Status != job.StatusQueued {
			continue
		}
		if j.ScheduledFor.Add(delay).After(now) {
			continue
		}
		cp := *j
		ready = append(ready, &cp)
	}

	sort.Slice(ready, func(i, k int) bool {
		return m.seq[ready[i].ID.String()] < m.seq[ready[k].ID.String()]
	})

	return ready, nil
}

// CountJobs returns the number of jobs matching the given options.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		count++
	}
	return count, nil
}
