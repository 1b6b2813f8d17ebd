// Package handlers provides HTTP handlers for risk diagnostics.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles risk HTTP requests
type Handler struct {
	service *risk.Service
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetDiagnostics computes live diagnostics for a portfolio
func (h *Handler) HandleGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	diag, err := h.service.GetDiagnostics(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, diag)
}

// HandleGetConstraints returns the active risk constraint configuration
func (h *Handler) HandleGetConstraints(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Engine().Constraints())
}

// HandleGetSnapshots returns stored diagnostics snapshots, newest first
func (h *Handler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snapshots, err := h.service.GetSnapshotHistory(id, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []risk.Diagnostics{}
	}

	h.writeJSON(w, http.StatusOK, snapshots)
}

// HandleGetLatestSnapshot returns the most recent stored snapshot
func (h *Handler) HandleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.GetLatestSnapshot(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if snapshot == nil {
		h.writeError(w, http.StatusNotFound, "no snapshots recorded for portfolio")
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
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
