package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/yeargame/internal/model"
)

// DefaultSendTimeout bounds each per-connection send during a broadcast
const DefaultSendTimeout = 5 * time.Second

type entry struct {
	conn        Conn
	player      string
	playerToken string
	connectedAt time.Time
}

// Hub manages the connections of a single tenant
type Hub struct {
	tenant      model.TenantID
	controller  Controller
	sendTimeout time.Duration
	logger      *slog.Logger

	mu    sync.RWMutex
	conns map[ConnID]*entry
}

// NewHub creates a new Hub for a tenant
func NewHub(tenant model.TenantID, controller Controller, sendTimeout time.Duration, logger *slog.Logger) *Hub {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Hub{
		tenant:      tenant,
		controller:  controller,
		sendTimeout: sendTimeout,
		logger:      logger.With(slog.String("tenant", string(tenant))),
		conns:       make(map[ConnID]*entry),
	}
}

// Register adds a connection and returns its id
func (h *Hub) Register(conn Conn) ConnID {
	id := ConnID(uuid.NewString())

	h.mu.Lock()
	h.conns[id] = &entry{conn: conn, connectedAt: time.Now()}
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("connection registered",
		slog.String("conn_id", string(id)),
		slog.Int("total_conns", count))
	return id
}

// Unregister removes a connection without closing it
func (h *Hub) Unregister(id ConnID) {
	h.mu.Lock()
	e, ok := h.conns[id]
	delete(h.conns, id)
	count := len(h.conns)
	h.mu.Unlock()

	if ok {
		h.logger.Info("connection unregistered",
			slog.String("conn_id", string(id)),
			slog.String("player", e.player),
			slog.Duration("connection_duration", time.Since(e.connectedAt)),
			slog.Int("total_conns", count))
	}
}

// Join adds a player to the tenant's session and attaches it to the connection
func (h *Hub) Join(ctx context.Context, id ConnID, name, adminToken string) (*model.Player, error) {
	if !h.has(id) {
		return nil, ErrUnknownConnection
	}

	player, err := h.controller.JoinPlayer(ctx, h.tenant, name, adminToken)
	if err != nil {
		return nil, err
	}

	h.attach(id, player)
	return player, nil
}

// Resume attaches an existing player to the connection using its token
func (h *Hub) Resume(ctx context.Context, id ConnID, playerToken string) (*model.Player, error) {
	if !h.has(id) {
		return nil, ErrUnknownConnection
	}

	player, err := h.controller.Authenticate(ctx, h.tenant, playerToken)
	if err != nil {
		return nil, err
	}

	h.attach(id, player)
	return player, nil
}

func (h *Hub) has(id ConnID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[id]
	return ok
}

func (h *Hub) attach(id ConnID, player *model.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// The connection may have gone away while the controller ran
	if e, ok := h.conns[id]; ok {
		e.player = player.Name
		e.playerToken = player.Token
	}
}

// Player returns the name and token attached to the connection, if any
func (h *Hub) Player(id ConnID) (name, token string, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, found := h.conns[id]
	if !found || e.playerToken == "" {
		return "", "", false
	}
	return e.player, e.playerToken, true
}

// Detach forgets every connection's player, leaving the connections open
func (h *Hub) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.conns {
		e.player = ""
		e.playerToken = ""
	}
}

// Broadcast sends an event to every connection registered when it is called.
// Sends run concurrently, each bounded by the send timeout; connections whose
// send fails are removed once every send has finished. Failures never reach the caller.
func (h *Hub) Broadcast(ctx context.Context, eventType model.EventType, data any) {
	msg, err := json.Marshal(model.NewEnvelope(eventType, data))
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
		return
	}

	// Copy conns so we don't hold the lock while sending
	h.mu.RLock()
	targets := make(map[ConnID]Conn, len(h.conns))
	for id, e := range h.conns {
		targets[id] = e.conn
	}
	h.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed []ConnID
	)
	for id, conn := range targets {
		wg.Add(1)
		go func(id ConnID, conn Conn) {
			defer wg.Done()
			if err := h.send(ctx, conn, msg); err != nil {
				h.logger.Warn("event delivery failed",
					slog.String("conn_id", string(id)),
					slog.String("event_type", string(eventType)),
					slog.String("error", err.Error()))
				failMu.Lock()
				failed = append(failed, id)
				failMu.Unlock()
			}
		}(id, conn)
	}
	wg.Wait()

	for _, id := range failed {
		h.remove(id)
	}
	if len(failed) > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.String("event_type", string(eventType)),
			slog.Int("sent", len(targets)-len(failed)),
			slog.Int("failed", len(failed)))
	}
}

// send delivers msg to one connection, giving up once the send timeout passes
// even if the connection ignores its context
func (h *Hub) send(ctx context.Context, conn Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- conn.Send(ctx, msg)
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSendFailed, ctx.Err())
	}
}

// remove unregisters and closes a connection that failed delivery
func (h *Hub) remove(id ConnID) {
	h.mu.Lock()
	e, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := e.conn.Close(); err != nil {
		h.logger.Debug("failed to close pruned connection",
			slog.String("conn_id", string(id)),
			slog.String("error", err.Error()))
	}
}

// CloseAll closes every connection and empties the registry
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[ConnID]*entry)
	h.mu.Unlock()

	for id, e := range conns {
		if err := e.conn.Close(); err != nil {
			h.logger.Warn("failed to close connection",
				slog.String("conn_id", string(id)),
				slog.String("error", err.Error()))
		}
	}
	h.logger.Info("hub closed", slog.Int("disconnected_conns", len(conns)))
}

// Count returns the number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
