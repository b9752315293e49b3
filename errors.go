package dispatched

import "errors"

var (
	// Not found errors.
	ErrJobNotFound = errors.New("dispatched: job not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("dispatched: job already exists")

	// State errors.
	ErrInvalidState = errors.New("dispatched: operation not permitted in current job status")

	// Request errors.
	ErrInvalidRequest = errors.New("dispatched: invalid request")

	// Delivery errors. Never surfaced to the job submitter; recorded on
	// the job record as a FAILED status instead.
	ErrDeliveryFailed = errors.New("dispatched: delivery attempt failed")
)
