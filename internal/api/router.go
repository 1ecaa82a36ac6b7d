package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check during a health request.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/toggle", s.handleToggle)
				r.Post("/override", s.handleOverride)
				r.Put("/control-method", s.handleSetControlMethod)
			})
		})

		r.Put("/schedules/{deviceId}", s.handleSyncSchedule)

		r.Route("/areas", func(r chi.Router) {
			r.Get("/", s.handleListAreas)
			r.Get("/{id}/live", s.handleLiveSnapshot)
		})
	})

	// WebSocket live stream
	r.Get("/ws/live", s.handleLiveSocket)

	return r
}

// handleHealth returns the server health status, probing each registered
// component with a bounded check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.health))
	status := http.StatusOK

	for name, check := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			components[name] = "ok"
		}
		cancel()
	}

	body := map[string]any{
		"status":     "ok",
		"version":    s.version,
		"components": components,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
