// Package scheduler discovers jobs whose due time has elapsed and hands
// them to the dispatcher on a fixed cadence.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

// Dispatcher is the callback the scanner uses to deliver a ready job.
// delivery.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID id.JobID) error
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithInterval sets how often the scanner checks for ready jobs.
// The wall-clock period is fixed regardless of how long a tick's work
// takes; a slow tick makes the next one fire late, never overlap.
func WithInterval(d time.Duration) Option {
	return func(s *Scanner) { s.interval = d }
}

// WithDelay sets the platform delay added to every job's scheduled time
// before it becomes eligible.
func WithDelay(d time.Duration) Option {
	return func(s *Scanner) { s.delay = d }
}

// WithNow sets the clock. For testing.
func WithNow(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// Scanner runs the readiness scan on a tick loop. Jobs discovered ready
// in the same tick are dispatched sequentially, so at most one outbound
// call from the scanner is in flight at a time.
type Scanner struct {
	store      job.Store
	dispatcher Dispatcher
	logger     *slog.Logger

	interval time.Duration
	delay    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScanner creates a Scanner.
func NewScanner(store job.Store, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   1 * time.Second,
		delay:      30 * time.Second,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick goroutine. Starting an already-running scanner
// first stops the previous timer, so duplicate scanners never accumulate.
func (s *Scanner) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopCh)
		s.wg.Wait()
	}

	s.stopCh = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	go s.tickLoop(s.stopCh)

	s.logger.Info("scanner started",
		slog.Duration("interval", s.interval),
		slog.Duration("delay", s.delay),
	)
	return nil
}

// Stop cancels the pending timer and waits for the tick goroutine to
// finish. An in-flight dispatch is allowed to complete.
func (s *Scanner) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	close(s.stopCh)
	s.wg.Wait()
	s.running = false

	s.logger.Info("scanner stopped")
	return nil
}

// tickLoop fires on each interval and processes ready jobs.
func (s *Scanner) tickLoop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scanner) tick() {
	ctx := context.Background()

	ready, err := s.store.ListReadyJobs(ctx, s.now(), s.delay)
	if err != nil {
		s.logger.Error("list ready jobs error", slog.String("error", err.Error()))
		return
	}

	for _, j := range ready {
		if err := s.dispatcher.Dispatch(ctx, j.ID); err != nil {
			s.logger.Error("dispatch error",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
