// Package handlers provides HTTP handlers for signal execution.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/modules/execution"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles execution HTTP requests
type Handler struct {
	engine *execution.Engine
	log    zerolog.Logger
}

// NewHandler creates a new execution handler
func NewHandler(engine *execution.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "execution").Logger(),
	}
}

type executeSignalRequest struct {
	PortfolioID int64    `json:"portfolio_id"`
	Symbol      string   `json:"symbol"`
	Signal      string   `json:"signal"`
	Rationale   string   `json:"rationale"`
	SessionID   *string  `json:"session_id,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Volatility  *float64 `json:"volatility,omitempty"`
	StopLoss    *float64 `json:"stop_loss,omitempty"`
}

// HandleExecuteSignal runs one signal through the execution pipeline.
// A 200 with null data means the signal produced no trade (HOLD, zero size,
// nothing to sell).
func (h *Handler) HandleExecuteSignal(w http.ResponseWriter, r *http.Request) {
	var req executeSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PortfolioID == 0 || req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "portfolio_id and symbol are required")
		return
	}

	trade, err := h.engine.ExecuteSignal(execution.SignalRequest{
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Signal:      req.Signal,
		Rationale:   req.Rationale,
		SessionID:   req.SessionID,
		Confidence:  req.Confidence,
		Volatility:  req.Volatility,
		StopLoss:    req.StopLoss,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, trade)
}

// HandleForceExit liquidates a position at the latest quote
func (h *Handler) HandleForceExit(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "portfolioID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}
	symbol := chi.URLParam(r, "symbol")

	trade, err := h.engine.ForceExitPosition(portfolioID, symbol, "manual liquidation", nil)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if trade == nil {
		h.writeError(w, http.StatusNotFound, "no open long position to exit")
		return
	}

	h.writeJSON(w, http.StatusOK, trade)
}

// HandleSweep runs the stop-loss / take-profit sweep for one portfolio
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "portfolioID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	results, err := h.engine.CheckStopLossTakeProfit(portfolioID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []execution.SweepResult{}
	}

	h.writeJSON(w, http.StatusOK, results)
}

// HandleCancelTrade cancels a non-terminal trade
func (h *Handler) HandleCancelTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, err := strconv.ParseInt(chi.URLParam(r, "tradeID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	trade, err := h.engine.CancelTrade(tradeID)
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

// writeDomainError maps typed domain errors to HTTP status codes.
// InsufficientFunds and RiskConstraintViolation are expected rejections.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch domain.CodeOf(err) {
	case domain.CodeValidation:
		h.writeError(w, http.StatusBadRequest, err.Error())
	case domain.CodeNotFound:
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.CodeInsufficientFunds:
		h.writeError(w, http.StatusConflict, err.Error())
	case domain.CodeRiskViolation:
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case domain.CodeExternalService:
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
