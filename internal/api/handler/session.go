package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/mcoot/yeargame/internal/api/middleware"
	"github.com/mcoot/yeargame/internal/api/request"
	"github.com/mcoot/yeargame/internal/api/response"
	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/realtime"
	"github.com/mcoot/yeargame/internal/services/session"
)

const (
	defaultQRSize = 320
	minQRSize     = 128
	maxQRSize     = 1024
)

// SessionHandler handles session lifecycle and connection endpoints
type SessionHandler struct {
	controller *session.Controller
	endpoint   *realtime.Endpoint
	publicURL  string
	logger     *slog.Logger
}

// NewSessionHandler creates a new session handler. An empty publicURL derives links from the request.
func NewSessionHandler(controller *session.Controller, endpoint *realtime.Endpoint, publicURL string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		endpoint:   endpoint,
		publicURL:  publicURL,
		logger:     logger,
	}
}

func tenantFrom(r *http.Request) model.TenantID {
	return model.TenantID(mux.Vars(r)["tenant"])
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.controller.ListTenants(r.Context())
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.TenantListFromModel(tenants))
}

// Create handles POST /api/v1/sessions/{tenant}
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req request.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(h.logger, w, r, NewInvalidRequestError("invalid request body"))
		return
	}
	if (req.Playlist == "") == (len(req.Songs) == 0) {
		WriteError(h.logger, w, r, NewInvalidRequestError("exactly one of songs and playlist is required"))
		return
	}

	songs := req.SongsToModel()
	if req.Playlist != "" {
		resolved, err := h.controller.ResolvePlaylist(r.Context(), req.Playlist)
		if err != nil {
			WriteError(h.logger, w, r, err)
			return
		}
		songs = resolved
	}

	var cfg model.GameConfig
	if req.Config != nil {
		cfg = req.Config.ToModel()
	}

	created, adminToken, err := h.controller.CreateSession(r.Context(), tenant, cfg, songs)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreateSessionResponseFromModel(created, adminToken))
}

// Get handles GET /api/v1/sessions/{tenant}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.controller.Snapshot(r.Context(), tenantFrom(r))
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, snapshot)
}

// Close handles DELETE /api/v1/sessions/{tenant}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())
	if err := h.controller.CloseSession(r.Context(), tenantFrom(r), token); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	response.NoContent(w)
}

// JoinLink handles GET /api/v1/sessions/{tenant}/join
func (h *SessionHandler) JoinLink(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	if err := tenant.Validate(); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	base := h.baseURL(r)
	socket := *base
	if socket.Scheme == "https" {
		socket.Scheme = "wss"
	} else {
		socket.Scheme = "ws"
	}

	response.JSON(w, http.StatusOK, response.JoinLink{
		Tenant:    string(tenant),
		JoinURL:   base.JoinPath("join", string(tenant)).String(),
		SocketURL: socket.JoinPath("api", "v1", "sessions", string(tenant), "ws").String(),
		QRCodeURL: base.JoinPath("api", "v1", "sessions", string(tenant), "join-qr").String(),
	})
}

// JoinQR handles GET /api/v1/sessions/{tenant}/join-qr
func (h *SessionHandler) JoinQR(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	if err := tenant.Validate(); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			WriteError(h.logger, w, r, NewInvalidRequestError(fmt.Sprintf("size must be between %d and %d", minQRSize, maxQRSize)))
			return
		}
		size = n
	}

	joinURL := h.baseURL(r).JoinPath("join", string(tenant)).String()
	png, err := qrcode.Encode(joinURL, qrcode.Medium, size)
	if err != nil {
		WriteError(h.logger, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Socket handles GET /api/v1/sessions/{tenant}/ws
func (h *SessionHandler) Socket(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	if err := tenant.Validate(); err != nil {
		WriteError(h.logger, w, r, err)
		return
	}
	h.endpoint.ServeWS(w, r, tenant)
}

// baseURL is the configured public URL, or one derived from the request
func (h *SessionHandler) baseURL(r *http.Request) *url.URL {
	if h.publicURL != "" {
		if u, err := url.Parse(h.publicURL); err == nil {
			return u
		}
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: r.Host}
}
