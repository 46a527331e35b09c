package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/yeargame/internal/apierr"
	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/services/ratelimit"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WSConn adapts a websocket connection to Conn. Writes are serialized.
type WSConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewWSConn wraps a websocket connection
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// Send writes msg as a text frame, honouring ctx's deadline
func (c *WSConn) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

// Close sends a close frame and closes the underlying connection
func (c *WSConn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// Command is an inbound client message
type Command struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	AdminToken  string `json:"admin_token,omitempty"`
	PlayerToken string `json:"player_token,omitempty"`
	Year        int    `json:"year,omitempty"`
	Bet         bool   `json:"bet,omitempty"`
}

// Command types
const (
	CommandJoin   = "join"
	CommandResume = "resume"
	CommandGuess  = "guess"
	CommandBet    = "bet"
	CommandPing   = "ping"
)

// Reply is the direct answer to a Command
type Reply struct {
	Type    string           `json:"type"`
	ID      string           `json:"id,omitempty"`
	Command string           `json:"command"`
	Data    any              `json:"data,omitempty"`
	Error   *apierr.APIError `json:"error,omitempty"`
}

// JoinResult is the reply data for join and resume
type JoinResult struct {
	Player      model.PublicPlayer `json:"player"`
	PlayerToken string             `json:"player_token"`
}

// Endpoint upgrades requests to websockets and serves connection commands
type Endpoint struct {
	manager    *HubManager
	limiter    ratelimit.Checker
	policies   ratelimit.Policies
	publicHost string
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewEndpoint creates a new websocket Endpoint. Browsers may connect from the
// request's own host or, when publicURL is set, from its host.
func NewEndpoint(manager *HubManager, limiter ratelimit.Checker, policies ratelimit.Policies, publicURL string, logger *slog.Logger) *Endpoint {
	e := &Endpoint{
		manager:  manager,
		limiter:  limiter,
		policies: policies,
		logger:   logger.With(slog.String("component", "websocket")),
	}
	if u, err := url.Parse(publicURL); err == nil {
		e.publicHost = u.Host
	}
	e.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     e.checkOrigin,
	}
	return e
}

// checkOrigin accepts clients that send no Origin, such as native apps
func (e *Endpoint) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if e.publicHost != "" && strings.EqualFold(u.Host, e.publicHost) {
		return true
	}
	return strings.EqualFold(u.Host, r.Host)
}

// ServeWS upgrades the request and serves the connection until it closes
func (e *Endpoint) ServeWS(w http.ResponseWriter, r *http.Request, tenant model.TenantID) {
	ws, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := NewWSConn(ws)
	hub := e.manager.Hub(tenant)
	id := hub.Register(conn)
	session := &wsSession{
		endpoint: e,
		hub:      hub,
		tenant:   tenant,
		id:       id,
		conn:     conn,
		remote:   remoteHost(r),
		logger:   e.logger.With(slog.String("tenant", string(tenant)), slog.String("conn_id", string(id))),
	}

	done := make(chan struct{})
	go session.pingLoop(ws, done)
	session.readLoop(r.Context(), ws)
	close(done)

	hub.Unregister(id)
	_ = ws.Close()
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type wsSession struct {
	endpoint *Endpoint
	hub      *Hub
	tenant   model.TenantID
	id       ConnID
	conn     *WSConn
	remote   string
	logger   *slog.Logger
}

func (s *wsSession) readLoop(ctx context.Context, ws *websocket.Conn) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.reply(ctx, Command{}, nil, apierr.NewInvalidRequestError("message must be a JSON command"))
			continue
		}
		data, err := s.dispatch(ctx, cmd)
		s.reply(ctx, cmd, data, err)
	}
}

func (s *wsSession) pingLoop(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) dispatch(ctx context.Context, cmd Command) (any, error) {
	policies := s.endpoint.policies
	limiter := s.endpoint.limiter

	switch cmd.Type {
	case CommandPing:
		return map[string]bool{"pong": true}, nil

	case CommandJoin, CommandResume:
		if err := policies.Join.Check(ctx, limiter, ratelimit.JoinKey(string(s.tenant), s.remote)); err != nil {
			return nil, err
		}
		var (
			player *model.Player
			err    error
		)
		if cmd.Type == CommandJoin {
			player, err = s.hub.Join(ctx, s.id, cmd.Name, cmd.AdminToken)
		} else {
			player, err = s.hub.Resume(ctx, s.id, cmd.PlayerToken)
		}
		if err != nil {
			return nil, err
		}
		return JoinResult{Player: player.Public(), PlayerToken: player.Token}, nil

	case CommandGuess, CommandBet:
		_, token, ok := s.hub.Player(s.id)
		if !ok {
			return nil, apierr.NewUnauthorizedError()
		}
		if err := policies.Guess.Check(ctx, limiter, ratelimit.GuessKey(string(s.tenant), token)); err != nil {
			return nil, err
		}
		if cmd.Type == CommandGuess {
			return s.hub.controller.SubmitGuess(ctx, s.tenant, token, cmd.Year, cmd.Bet)
		}
		return s.hub.controller.UpdateBet(ctx, s.tenant, token, cmd.Bet)

	default:
		return nil, apierr.NewInvalidRequestError("unknown command type")
	}
}

func (s *wsSession) reply(ctx context.Context, cmd Command, data any, err error) {
	reply := Reply{
		Type:    model.EventNamespace + "/result",
		ID:      cmd.ID,
		Command: cmd.Type,
		Data:    data,
	}
	if err != nil {
		_, apiErr := apierr.From(err)
		if apierr.IsInternal(err) && !errors.Is(err, context.Canceled) {
			s.logger.Error("websocket command failed",
				slog.String("command", cmd.Type),
				slog.String("error", err.Error()))
		}
		reply.Type = model.EventNamespace + "/error"
		reply.Data = nil
		reply.Error = &apiErr
	}

	msg, mErr := json.Marshal(reply)
	if mErr != nil {
		s.logger.Error("failed to encode reply", slog.String("error", mErr.Error()))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if sErr := s.conn.Send(sendCtx, msg); sErr != nil {
		s.logger.Debug("failed to send reply", slog.String("error", sErr.Error()))
	}
}
