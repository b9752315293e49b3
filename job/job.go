package job

import (
	"encoding/json"
	"time"

	"github.com/dispatched-dev/dispatched/id"
)

// Status represents the lifecycle status of a job.
type Status string

const (
	// StatusQueued means the job is waiting for its scheduled time.
	StatusQueued Status = "QUEUED"
	// StatusDispatched means a delivery attempt is in flight. It is
	// transient bookkeeping, normally superseded within one attempt.
	StatusDispatched Status = "DISPATCHED"
	// StatusCompleted means the delivery attempt succeeded.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed means the delivery attempt did not succeed.
	StatusFailed Status = "FAILED"
	// StatusCancelled means the job was explicitly cancelled.
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job represents one scheduled webhook delivery.
type Job struct {
	ID           id.JobID        `json:"id"`
	Status       Status          `json:"status"`
	ScheduledFor time.Time       `json:"scheduledFor"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	// Outcome bookkeeping, written by the dispatcher.
	AttemptID   id.AttemptID `json:"attemptId,omitempty"`
	DeliveredAt *time.Time   `json:"deliveredAt,omitempty"`
	LastError   string       `json:"lastError,omitempty"`
}
