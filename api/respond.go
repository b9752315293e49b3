package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dispatched-dev/dispatched"
)

// Error codes surfaced to clients.
const (
	codeNotFound       = "NOT_FOUND"
	codeInvalidState   = "INVALID_STATE"
	codeInvalidRequest = "INVALID_REQUEST"
	codeUnauthorized   = "UNAUTHORIZED"
	codeInternal       = "INTERNAL"
)

// errorBody is the JSON error envelope: {"error": {"code", "message"}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeEngineError maps engine errors to HTTP responses. Unexpected
// faults are reported generically without leaking internal detail.
func (a *API) writeEngineError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, dispatched.ErrJobNotFound):
		writeError(w, http.StatusNotFound, codeNotFound,
			fmt.Sprintf("job %q not found", jobID))
	case errors.Is(err, dispatched.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState,
			"operation is only permitted while the job is QUEUED")
	case errors.Is(err, dispatched.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request")
	default:
		a.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
