// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

type createPortfolioRequest struct {
	Name           string  `json:"name"`
	Currency       string  `json:"currency"`
	InitialCapital float64 `json:"initial_capital"`
}

// HandleCreatePortfolio creates a new portfolio
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.CreatePortfolio(req.Name, domain.Currency(req.Currency), req.InitialCapital)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, p)
}

// HandleListPortfolios returns all portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.service.ListPortfolios()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if portfolios == nil {
		portfolios = []domain.Portfolio{}
	}

	h.writeJSON(w, http.StatusOK, portfolios)
}

// HandleGetPortfolio returns a single portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetPortfolio(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleGetSummary returns the portfolio summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetPositions returns open positions for a portfolio
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	positions, err := h.service.GetPositions(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}

	h.writeJSON(w, http.StatusOK, positions)
}

type updatePricesRequest struct {
	Prices map[string]float64 `json:"prices"`
}

// HandleUpdatePrices refreshes position market data from supplied prices
func (h *Handler) HandleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var req updatePricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Prices) == 0 {
		h.writeError(w, http.StatusBadRequest, "prices map is required")
		return
	}

	if err := h.service.UpdateMarketPrices(id, req.Prices); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"updated": true})
}

// Helper methods

func (h *Handler) portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "portfolioID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return 0, false
	}
	return id, true
}

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

// writeDomainError maps typed domain errors to HTTP status codes
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch domain.CodeOf(err) {
	case domain.CodeValidation:
		h.writeError(w, http.StatusBadRequest, err.Error())
	case domain.CodeNotFound:
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.CodeInsufficientFunds, domain.CodeRiskViolation:
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case domain.CodeExternalService:
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
