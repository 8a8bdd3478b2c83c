package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mqttlog/internal/session"
	"github.com/nerrad567/mqttlog/internal/sink"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
	})

	return r
}

// healthCheckTimeout bounds the sink check of a single health request.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Session string   `json:"session"`
	Sink    string   `json:"sink"`
	Topics  []string `json:"topics"`
	Version string   `json:"version"`
}

// handleHealth reports the session and sink state. Anything but an open
// broker connection and a writable sink is reported as unavailable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Session: string(s.session.State()),
		Sink:    "ok",
		Topics:  s.session.Topics(),
		Version: s.version,
	}

	var sinkErr error
	if s.sink != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		sinkErr = sink.Check(ctx, s.sink)
		cancel()
	}
	if sinkErr != nil {
		resp.Sink = sinkErr.Error()
	}

	status := http.StatusOK
	switch {
	case s.session.State() == session.StateTerminated:
		resp.Status = "terminated"
		status = http.StatusServiceUnavailable
	case !s.session.IsConnected():
		resp.Status = "disconnected"
		status = http.StatusServiceUnavailable
	case sinkErr != nil:
		resp.Status = "sink_unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
