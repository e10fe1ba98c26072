package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID, s.accessLog, s.recoverPanics)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/synapses", func(r chi.Router) {
			r.Get("/", s.handleListSynapses)
			r.Post("/{name}/start", s.handleStartSynapse)
		})
		r.Post("/orders", s.handleRunOrder)

		if s.fences != nil || s.geofence != nil {
			r.Route("/geofences", func(r chi.Router) {
				if s.fences != nil {
					r.Get("/", s.handleListFences)
				}
				if s.geofence != nil {
					r.Post("/arm", s.handleArmGeofences)
				}
			})
		}

		if s.history != nil {
			r.Get("/history", s.handleListHistory)
		}

		if s.ownTracks != nil {
			r.Post("/owntracks", s.handleOwnTracks)
		}
	})

	return r
}
