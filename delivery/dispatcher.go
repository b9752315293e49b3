package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dispatched-dev/dispatched"
	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

// meterName is the instrumentation scope name for delivery metrics.
const meterName = "github.com/dispatched-dev/dispatched"

// Dispatcher performs exactly one delivery attempt for a job and records
// the outcome on the job record.
type Dispatcher struct {
	store     job.Store
	forwarder Forwarder
	logger    *slog.Logger
	now       func() time.Time

	// Instruments:
	//   - dispatched.delivery.attempts (Int64Counter): total attempts,
	//     with attribute: outcome ("completed", "failed", "skipped")
	//   - dispatched.delivery.duration (Float64Histogram): forward call
	//     time in seconds, with attribute: outcome
	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNow sets the clock. For testing.
func WithNow(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// WithMeter sets the meter used for delivery instruments. If not set,
// the global OTel MeterProvider is used; without a configured provider
// the instruments are noops and instrumentation is a pass-through.
func WithMeter(m metric.Meter) DispatcherOption {
	return func(d *Dispatcher) { d.initInstruments(m) }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store job.Store, forwarder Forwarder, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		store:     store,
		forwarder: forwarder,
		logger:    logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	d.initInstruments(otel.Meter(meterName))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// initInstruments creates the delivery instruments once. On error the
// OTel API returns noop instruments, so metrics degrade gracefully.
func (d *Dispatcher) initInstruments(meter metric.Meter) {
	var err error
	d.attempts, err = meter.Int64Counter(
		"dispatched.delivery.attempts",
		metric.WithDescription("Total delivery attempts by outcome"),
	)
	if err != nil {
		d.logger.Warn("create attempts counter", slog.String("error", err.Error()))
	}
	d.duration, err = meter.Float64Histogram(
		"dispatched.delivery.duration",
		metric.WithDescription("Duration of the outbound forward call in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		d.logger.Warn("create duration histogram", slog.String("error", err.Error()))
	}
}

// Dispatch performs one delivery attempt for the given job.
//
// The job is claimed atomically: the store transitions QUEUED to
// DISPATCHED in one operation, so when the scanner and a fire-and-forget
// path race on the same job only one wins and sends. A job that is no
// longer QUEUED (cancelled, or claimed by the other path) loses the
// claim and the attempt is aborted without sending. Once claimed the
// outbound call always completes and its outcome is written back, even
// if a cancel landed in the meantime. That overwrite is accepted
// behavior for the simulator.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID id.JobID) error {
	attemptID := id.NewAttemptID()
	j, err := d.store.ClaimJob(ctx, jobID, attemptID)
	if errors.Is(err, dispatched.ErrInvalidState) {
		d.logger.Debug("dispatch skipped",
			slog.String("job_id", jobID.String()),
		)
		d.record(ctx, "skipped", 0)
		return nil
	}
	if err != nil {
		return err
	}

	env := NewEnvelope(j, attemptID)

	d.logger.Info("delivery attempt",
		slog.String("job_id", j.ID.String()),
		slog.String("attempt_id", attemptID.String()),
	)

	start := time.Now()
	sendErr := d.forwarder.Forward(ctx, env)
	elapsed := time.Since(start)

	deliveredAt := d.now()
	j.DeliveredAt = &deliveredAt

	if sendErr != nil {
		j.Status = job.StatusFailed
		j.LastError = sendErr.Error()
		d.logger.Warn("delivery failed",
			slog.String("job_id", j.ID.String()),
			slog.String("attempt_id", attemptID.String()),
			slog.Duration("elapsed", elapsed),
			slog.String("error", sendErr.Error()),
		)
		d.record(ctx, "failed", elapsed)
	} else {
		j.Status = job.StatusCompleted
		j.LastError = ""
		d.logger.Info("delivery completed",
			slog.String("job_id", j.ID.String()),
			slog.String("attempt_id", attemptID.String()),
			slog.Duration("elapsed", elapsed),
		)
		d.record(ctx, "completed", elapsed)
	}

	// One-shot delivery: the outcome is a state transition, never an
	// error raised back to the submitter.
	return d.store.UpdateJob(ctx, j)
}

func (d *Dispatcher) record(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if d.attempts != nil {
		d.attempts.Add(ctx, 1, attrs)
	}
	if d.duration != nil && elapsed > 0 {
		d.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
