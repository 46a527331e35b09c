package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/yeargame/internal/api/middleware"
	"github.com/mcoot/yeargame/internal/api/response"
	"github.com/mcoot/yeargame/internal/services/session"
)

// RoundHandler handles the admin-only round flow endpoints
type RoundHandler struct {
	controller *session.Controller
	logger     *slog.Logger
}

// NewRoundHandler creates a new round handler
func NewRoundHandler(controller *session.Controller, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{
		controller: controller,
		logger:     logger,
	}
}

// Next handles POST /api/v1/sessions/{tenant}/rounds
func (h *RoundHandler) Next(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())

	round, err := h.controller.RequestNextRound(r.Context(), tenantFrom(r), token)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, round.Public())
}

// End handles POST /api/v1/sessions/{tenant}/rounds/current/end
func (h *RoundHandler) End(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())

	summary, err := h.controller.EndRound(r.Context(), tenantFrom(r), token)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// EndGame handles POST /api/v1/sessions/{tenant}/end
func (h *RoundHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())

	result, err := h.controller.EndGame(r.Context(), tenantFrom(r), token)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
