// Package handlers provides HTTP handlers for trade history.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/modules/trading"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles trade history HTTP requests
type Handler struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(service *trading.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// HandleListTrades returns recent trades for a portfolio
func (h *Handler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := strconv.ParseInt(r.URL.Query().Get("portfolio_id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "portfolio_id query parameter is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var trades []domain.Trade
	if r.URL.Query().Get("open") == "true" {
		trades, err = h.service.ListOpenTrades(portfolioID)
	} else {
		trades, err = h.service.ListTrades(portfolioID, limit)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}

	h.writeJSON(w, http.StatusOK, trades)
}

// HandleGetTrade returns a trade with its executions
func (h *Handler) HandleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tradeID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	trade, err := h.service.GetTrade(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, trade)
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
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
