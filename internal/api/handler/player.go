package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcoot/yeargame/internal/api/middleware"
	"github.com/mcoot/yeargame/internal/api/request"
	"github.com/mcoot/yeargame/internal/api/response"
	"github.com/mcoot/yeargame/internal/services/session"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	controller *session.Controller
	logger     *slog.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(controller *session.Controller, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		controller: controller,
		logger:     logger,
	}
}

// Join handles POST /api/v1/sessions/{tenant}/players
func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(h.logger, w, r, NewInvalidRequestError("invalid request body"))
		return
	}

	player, err := h.controller.JoinPlayer(r.Context(), tenantFrom(r), req.Name, req.AdminToken)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.JoinResponseFromModel(player))
}

// Me handles GET /api/v1/sessions/{tenant}/players/me
func (h *PlayerHandler) Me(w http.ResponseWriter, r *http.Request) {
	player, err := h.controller.Authenticate(r.Context(), tenantFrom(r), middleware.GetToken(r.Context()))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, player.Public())
}

// Guess handles POST /api/v1/sessions/{tenant}/guesses
func (h *PlayerHandler) Guess(w http.ResponseWriter, r *http.Request) {
	var req request.GuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(h.logger, w, r, NewInvalidRequestError("invalid request body"))
		return
	}

	guess, err := h.controller.SubmitGuess(r.Context(), tenantFrom(r), middleware.GetToken(r.Context()), req.Year, req.Bet)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GuessFromModel(guess))
}

// Bet handles PATCH /api/v1/sessions/{tenant}/guesses/bet
func (h *PlayerHandler) Bet(w http.ResponseWriter, r *http.Request) {
	var req request.BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(h.logger, w, r, NewInvalidRequestError("invalid request body"))
		return
	}

	guess, err := h.controller.UpdateBet(r.Context(), tenantFrom(r), middleware.GetToken(r.Context()), req.Bet)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GuessFromModel(guess))
}
