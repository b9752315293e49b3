package delivery

import (
	"encoding/json"

	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

// Envelope is the outbound payload posted to the forward URL. It wraps
// the caller's payload with delivery metadata.
type Envelope struct {
	JobID         id.JobID        `json:"jobId"`
	AttemptID     id.AttemptID    `json:"attemptId"`
	AttemptNumber int             `json:"attemptNumber"`
	Status        job.Status      `json:"status"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope builds the first-attempt envelope for a job. Delivery is
// one-shot, so AttemptNumber is always 1.
func NewEnvelope(j *job.Job, attemptID id.AttemptID) *Envelope {
	return &Envelope{
		JobID:         j.ID,
		AttemptID:     attemptID,
		AttemptNumber: 1,
		Status:        job.StatusDispatched,
		Payload:       j.Payload,
	}
}
