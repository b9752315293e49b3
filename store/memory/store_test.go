package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dispatched-dev/dispatched"
	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

func newJob(status job.Status, scheduledFor time.Time) *job.Job {
	now := time.Now().UTC()
	return &job.Job{
		ID:           id.NewJobID(),
		Status:       status,
		ScheduledFor: scheduledFor,
		Payload:      json.RawMessage(`{"test":true}`),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatusQueued, time.Now().UTC())

	tests := []struct {
		name    string
		fn      func() error
		wantErr error
	}{
		{
			name:    "create new job",
			fn:      func() error { return s.CreateJob(ctx, j) },
			wantErr: nil,
		},
		{
			name:    "create duplicate job",
			fn:      func() error { return s.CreateJob(ctx, j) },
			wantErr: dispatched.ErrJobAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusQueued {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusQueued)
	}

	_, err = s.GetJob(ctx, id.NewJobID())
	if !errors.Is(err, dispatched.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatusQueued, time.Now().UTC())
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	got.Status = job.StatusFailed

	again, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.Status != job.StatusQueued {
		t.Fatal("mutating a returned record leaked into the store")
	}
}

func TestUpdateJob(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatusQueued, time.Now().UTC())
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	j.Status = job.StatusCompleted
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusCompleted {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusCompleted)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Fatal("UpdateJob did not bump UpdatedAt")
	}

	// Update of an unknown job fails.
	missing := newJob(job.StatusQueued, time.Now().UTC())
	if err := s.UpdateJob(ctx, missing); !errors.Is(err, dispatched.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListReadyJobs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	now := time.Now().UTC()
	delay := 30 * time.Second

	due1 := newJob(job.StatusQueued, now.Add(-time.Minute))
	due2 := newJob(job.StatusQueued, now.Add(-2*time.Minute))
	notDue := newJob(job.StatusQueued, now.Add(-delay).Add(time.Second))
	future := newJob(job.StatusQueued, now.Add(time.Hour))
	done := newJob(job.StatusCompleted, now.Add(-time.Hour))
	cancelled := newJob(job.StatusCancelled, now.Add(-time.Hour))

	for _, j := range []*job.Job{due1, due2, notDue, future, done, cancelled} {
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	ready, err := s.ListReadyJobs(ctx, now, delay)
	if err != nil {
		t.Fatalf("ListReadyJobs: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("got %d ready jobs, want 2", len(ready))
	}

	// FIFO by insertion order: due1 was inserted before due2 even though
	// due2 has the earlier scheduled time.
	if ready[0].ID.String() != due1.ID.String() {
		t.Errorf("first ready job is %s, want %s", ready[0].ID, due1.ID)
	}
	if ready[1].ID.String() != due2.ID.String() {
		t.Errorf("second ready job is %s, want %s", ready[1].ID, due2.ID)
	}
}

func TestListReadyJobsDelayBoundary(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	now := time.Now().UTC()
	delay := 5 * time.Second

	// Exactly at the boundary: scheduledFor + delay == now is ready.
	exact := newJob(job.StatusQueued, now.Add(-delay))
	if err := s.CreateJob(ctx, exact); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	ready, err := s.ListReadyJobs(ctx, now, delay)
	if err != nil {
		t.Fatalf("ListReadyJobs: %v", err)
	}
	if len(ready) != 1 {
		t.Fatalf("got %d ready jobs, want 1", len(ready))
	}
}

func TestCountJobs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	now := time.Now().UTC()
	for _, st := range []job.Status{job.StatusQueued, job.StatusQueued, job.StatusCompleted, job.StatusFailed} {
		if err := s.CreateJob(ctx, newJob(st, now)); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	tests := []struct {
		name string
		opts job.CountOpts
		want int64
	}{
		{"all", job.CountOpts{}, 4},
		{"queued", job.CountOpts{Status: job.StatusQueued}, 2},
		{"completed", job.CountOpts{Status: job.StatusCompleted}, 1},
		{"cancelled", job.CountOpts{Status: job.StatusCancelled}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CountJobs(ctx, tt.opts)
			if err != nil {
				t.Fatalf("CountJobs: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClaimJob(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatusQueued, time.Now().UTC())
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob returned error: %v", err)
	}

	attemptID := id.NewAttemptID()
	claimed, err := s.ClaimJob(ctx, j.ID, attemptID)
	if err != nil {
		t.Fatalf("ClaimJob returned error: %v", err)
	}
	if claimed.Status != job.StatusDispatched {
		t.Errorf("claimed status = %q, want %q", claimed.Status, job.StatusDispatched)
	}
	if claimed.AttemptID.String() != attemptID.String() {
		t.Errorf("claimed attempt ID = %s, want %s", claimed.AttemptID, attemptID)
	}

	// A second claim loses.
	if _, err := s.ClaimJob(ctx, j.ID, id.NewAttemptID()); !errors.Is(err, dispatched.ErrInvalidState) {
		t.Fatalf("second claim error = %v, want ErrInvalidState", err)
	}

	if _, err := s.ClaimJob(ctx, id.NewJobID(), id.NewAttemptID()); !errors.Is(err, dispatched.ErrJobNotFound) {
		t.Fatalf("unknown job claim error = %v, want ErrJobNotFound", err)
	}
}

func TestClaimJobNotQueued(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	for _, status := range []job.Status{
		job.StatusDispatched,
		job.StatusCompleted,
		job.StatusFailed,
		job.StatusCancelled,
	} {
		j := newJob(status, time.Now().UTC())
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob returned error: %v", err)
		}
		if _, err := s.ClaimJob(ctx, j.ID, id.NewAttemptID()); !errors.Is(err, dispatched.ErrInvalidState) {
			t.Fatalf("claim of %q job error = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestClaimJobConcurrent(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatusQueued, time.Now().UTC())
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob returned error: %v", err)
	}

	const claimers = 16
	var wg sync.WaitGroup
	var wins atomic.Int64
	for range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ClaimJob(ctx, j.ID, id.NewAttemptID()); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("got %d successful claims, want exactly 1", got)
	}
}
