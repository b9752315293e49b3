// Package api exposes the job lifecycle operations over HTTP. Routing is
// handled by chi; every management route requires the shared secret as a
// bearer token. The handlers are thin: decode, call the engine, map the
// result or error back to JSON.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dispatched-dev/dispatched/engine"
)

// API wires the HTTP handlers for the Dispatched server.
type API struct {
	eng    *engine.Engine
	secret string
	logger *slog.Logger
}

// New creates an API around an engine. The secret guards every /api route.
func New(eng *engine.Engine, secret string, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{eng: eng, secret: secret, logger: logger}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", a.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Post("/jobs", a.createJob)
		r.Get("/jobs/{jobID}", a.getJob)
		r.Patch("/jobs/{jobID}", a.rescheduleJob)
		r.Delete("/jobs/{jobID}", a.cancelJob)
		r.Get("/stats", a.stats)
	})

	return r
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
