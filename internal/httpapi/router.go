// Package httpapi is the chi-based HTTP facade exposing exactly the
// endpoints described for the external surface, plus an additive
// /metrics endpoint.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"horus/internal/hostmonitor"
	"horus/internal/service"
)

// NewRouter builds the full chi router bound to svc.
func NewRouter(svc *service.Context, hostMon *hostmonitor.Monitor, log zerolog.Logger) http.Handler {
	h := &handlers{svc: svc, hostMon: hostMon, log: log.With().Str("component", "httpapi").Logger()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Post("/jobs", h.submitJob)
	r.Get("/jobs/{job_id}", h.getJob)
	r.Get("/jobs/{job_id}/artifact/{name}", h.getArtifact)
	r.Post("/admin/reload-config", h.reloadConfig)
	r.Get("/health", h.health)
	r.Get("/health/providers", h.healthProviders)
	if m := svc.Metrics(); m != nil {
		r.Handle("/metrics", m.Handler())
	}

	return r
}
