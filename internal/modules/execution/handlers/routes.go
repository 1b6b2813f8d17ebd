package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all execution routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/execution", func(r chi.Router) {
		r.Post("/signal", h.HandleExecuteSignal)
		r.Post("/trades/{tradeID}/cancel", h.HandleCancelTrade)

		r.Route("/portfolios/{portfolioID}", func(r chi.Router) {
			r.Post("/exit/{symbol}", h.HandleForceExit)
			r.Post("/sweep", h.HandleSweep)
		})
	})
}
