// Package handlers provides HTTP handlers for the simulated broker gateway:
// quote seeding and gateway-side order and position inspection.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/averros/tradecore/internal/broker"
	"github.com/averros/tradecore/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles broker gateway HTTP requests
type Handler struct {
	gateway *broker.SimulatedGateway
	log     zerolog.Logger
}

// NewHandler creates a new broker handler
func NewHandler(gateway *broker.SimulatedGateway, log zerolog.Logger) *Handler {
	return &Handler{
		gateway: gateway,
		log:     log.With().Str("handler", "broker").Logger(),
	}
}

// RegisterRoutes registers all broker routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/broker", func(r chi.Router) {
		r.Post("/quotes", h.HandleSetQuotes)
		r.Get("/quotes/{symbol}", h.HandleGetQuote)
		r.Get("/orders/{orderID}", h.HandleGetOrder)
		r.Post("/orders/{orderID}/reevaluate", h.HandleReevaluateOrder)
		r.Get("/positions", h.HandleGetPositions)
		r.Get("/buying-power", h.HandleGetBuyingPower)
	})
}

type quoteUpdate struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
}

// HandleSetQuotes seeds or updates market quotes on the simulated gateway
func (h *Handler) HandleSetQuotes(w http.ResponseWriter, r *http.Request) {
	var updates []quoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted := 0
	for _, q := range updates {
		if q.Symbol == "" || q.Bid <= 0 || q.Ask <= 0 || q.Ask < q.Bid {
			continue
		}
		h.gateway.SetQuote(q.Symbol, q.Bid, q.Ask, q.Last)
		accepted++
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"accepted": accepted, "rejected": len(updates) - accepted})
}

// HandleGetQuote returns the current quote for a symbol
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.gateway.GetQuote(chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

// HandleGetOrder returns the gateway-side state of an order
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.gateway.GetOrderStatus(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleReevaluateOrder re-checks a pending limit order against the latest quote
func (h *Handler) HandleReevaluateOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.gateway.ReevaluateOrder(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleGetPositions returns the gateway's own position book
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.gateway.GetPositions()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, positions)
}

// HandleGetBuyingPower returns the available simulated capital
func (h *Handler) HandleGetBuyingPower(w http.ResponseWriter, r *http.Request) {
	power, err := h.gateway.GetBuyingPower()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"buying_power": power})
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode error response")
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch domain.CodeOf(err) {
	case domain.CodeValidation:
		h.writeError(w, http.StatusBadRequest, err.Error())
	case domain.CodeNotFound:
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.CodeInsufficientFunds:
		h.writeError(w, http.StatusConflict, err.Error())
	case domain.CodeExternalService:
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
