package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dispatched-dev/dispatched/engine"
	"github.com/dispatched-dev/dispatched/id"
	"github.com/dispatched-dev/dispatched/job"
)

// CreateJobRequest is the body for POST /api/jobs.
type CreateJobRequest struct {
	// ScheduledFor is the earliest delivery moment (RFC 3339).
	// Omitted means now.
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`

	// Payload is opaque caller data forwarded unmodified.
	Payload json.RawMessage `json:"payload"`
}

// RescheduleJobRequest is the body for PATCH /api/jobs/{jobID}.
type RescheduleJobRequest struct {
	ScheduledFor *time.Time `json:"scheduledFor"`
}

// StatsResponse is the body for GET /api/stats.
type StatsResponse struct {
	Jobs map[job.Status]int64 `json:"jobs"`
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest,
			fmt.Sprintf("decode body: %v", err))
		return
	}

	j, err := a.eng.CreateJob(r.Context(), engine.CreateParams{
		ScheduledFor: req.ScheduledFor,
		Payload:      req.Payload,
	})
	if err != nil {
		a.writeEngineError(w, "", err)
		return
	}

	writeJSON(w, http.StatusCreated, j)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := a.jobIDParam(w, r)
	if !ok {
		return
	}

	j, err := a.eng.GetJob(r.Context(), jobID)
	if err != nil {
		a.writeEngineError(w, jobID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (a *API) rescheduleJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := a.jobIDParam(w, r)
	if !ok {
		return
	}

	var req RescheduleJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest,
			fmt.Sprintf("decode body: %v", err))
		return
	}
	if req.ScheduledFor == nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "scheduledFor is required")
		return
	}

	j, err := a.eng.RescheduleJob(r.Context(), jobID, *req.ScheduledFor)
	if err != nil {
		a.writeEngineError(w, jobID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := a.jobIDParam(w, r)
	if !ok {
		return
	}

	j, err := a.eng.CancelJob(r.Context(), jobID)
	if err != nil {
		a.writeEngineError(w, jobID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.eng.Stats(r.Context())
	if err != nil {
		a.writeEngineError(w, "", err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{Jobs: counts})
}

// jobIDParam parses the {jobID} route parameter. An unparseable ID can
// never name a job, so it reports NOT_FOUND with the raw value echoed.
func (a *API) jobIDParam(w http.ResponseWriter, r *http.Request) (id.JobID, bool) {
	raw := chi.URLParam(r, "jobID")
	jobID, err := id.ParseJobID(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound,
			fmt.Sprintf("job %q not found", raw))
		return id.Nil, false
	}
	return jobID, true
}
