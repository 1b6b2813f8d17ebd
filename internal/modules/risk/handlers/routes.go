package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/constraints", h.HandleGetConstraints)

		r.Route("/{portfolioID}", func(r chi.Router) {
			r.Get("/diagnostics", h.HandleGetDiagnostics)
			r.Get("/snapshots", h.HandleGetSnapshots)
			r.Get("/snapshots/latest", h.HandleGetLatestSnapshot)
		})
	})
}
