// Package handlers provides HTTP handlers for trading sessions.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles session HTTP requests
type Handler struct {
	manager *sessions.Manager
	log     zerolog.Logger
}

// NewHandler creates a new sessions handler
func NewHandler(manager *sessions.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		log:     log.With().Str("handler", "sessions").Logger(),
	}
}

// RegisterRoutes registers all session routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleStart)
		r.Get("/{sessionID}", h.HandleGet)
		r.Post("/{sessionID}/stop", h.HandleStop)
	})
}

type startSessionRequest struct {
	PortfolioID int64  `json:"portfolio_id"`
	Strategy    string `json:"strategy"`
}

// HandleStart opens a new trading session
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.manager.Start(req.PortfolioID, req.Strategy)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, session)
}

// HandleGet returns one session
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

// HandleList returns sessions, optionally filtered by portfolio_id
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var portfolioID int64
	if raw := r.URL.Query().Get("portfolio_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid portfolio_id")
			return
		}
		portfolioID = parsed
	}

	h.writeJSON(w, http.StatusOK, h.manager.List(portfolioID))
}

// HandleStop closes a session
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Stop(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
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
