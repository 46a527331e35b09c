package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/yeargame/internal/api/handler"
	"github.com/mcoot/yeargame/internal/api/middleware"
	coremw "github.com/mcoot/yeargame/internal/middleware"
	"github.com/mcoot/yeargame/internal/realtime"
	"github.com/mcoot/yeargame/internal/services/ratelimit"
	"github.com/mcoot/yeargame/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Controller *session.Controller
	Endpoint   *realtime.Endpoint
	Limiter    ratelimit.Checker
	Policies   ratelimit.Policies
	// PublicURL is the externally reachable base URL for join links (optional)
	PublicURL string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.Controller, cfg.Endpoint, cfg.PublicURL, cfg.Logger)
	roundHandler := handler.NewRoundHandler(cfg.Controller, cfg.Logger)
	playerHandler := handler.NewPlayerHandler(cfg.Controller, cfg.Logger)

	// Create middleware
	loggingMiddleware := coremw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	adminLimit := middleware.RateLimit(cfg.Limiter, cfg.Policies.Admin, middleware.AdminKey, cfg.Logger)
	createLimit := middleware.RateLimit(cfg.Limiter, cfg.Policies.Admin, middleware.CreateKey, cfg.Logger)
	joinLimit := middleware.RateLimit(cfg.Limiter, cfg.Policies.Join, middleware.JoinKey, cfg.Logger)
	playerLimit := middleware.RateLimit(cfg.Limiter, cfg.Policies.Guess, middleware.PlayerKey, cfg.Logger)

	// admin wraps a handler that needs an admin bearer token
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireToken(adminLimit(h))
	}
	// player wraps a handler that needs a player bearer token
	player := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireToken(playerLimit(h))
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Session routes
	api.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	api.Handle("/sessions/{tenant}", createLimit(http.HandlerFunc(sessionHandler.Create))).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{tenant}", sessionHandler.Get).Methods(http.MethodGet)
	api.Handle("/sessions/{tenant}", admin(sessionHandler.Close)).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{tenant}/join", sessionHandler.JoinLink).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{tenant}/join-qr", sessionHandler.JoinQR).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{tenant}/ws", sessionHandler.Socket).Methods(http.MethodGet)

	// Round routes (admin only)
	api.Handle("/sessions/{tenant}/rounds", admin(roundHandler.Next)).Methods(http.MethodPost)
	api.Handle("/sessions/{tenant}/rounds/current/end", admin(roundHandler.End)).Methods(http.MethodPost)
	api.Handle("/sessions/{tenant}/end", admin(roundHandler.EndGame)).Methods(http.MethodPost)

	// Player routes
	api.Handle("/sessions/{tenant}/players", joinLimit(http.HandlerFunc(playerHandler.Join))).Methods(http.MethodPost)
	api.Handle("/sessions/{tenant}/players/me", middleware.RequireToken(http.HandlerFunc(playerHandler.Me))).Methods(http.MethodGet)
	api.Handle("/sessions/{tenant}/guesses", player(playerHandler.Guess)).Methods(http.MethodPost)
	api.Handle("/sessions/{tenant}/guesses/bet", player(playerHandler.Bet)).Methods(http.MethodPatch)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
