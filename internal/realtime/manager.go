package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/yeargame/internal/model"
)

// HubManager keeps one hub per tenant and publishes session events to them
type HubManager struct {
	controller  Controller
	sendTimeout time.Duration
	logger      *slog.Logger

	mu   sync.RWMutex
	hubs map[model.TenantID]*Hub
}

// NewHubManager creates a new HubManager
func NewHubManager(controller Controller, sendTimeout time.Duration, logger *slog.Logger) *HubManager {
	return &HubManager{
		controller:  controller,
		sendTimeout: sendTimeout,
		logger:      logger.With(slog.String("component", "realtime")),
		hubs:        make(map[model.TenantID]*Hub),
	}
}

// SetController sets the controller used for connection commands.
// It must be called before any hub is created.
func (m *HubManager) SetController(controller Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controller = controller
}

// Hub returns the hub for a tenant, creating one if it doesn't exist
func (m *HubManager) Hub(tenant model.TenantID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[tenant]; ok {
		return hub
	}
	hub := NewHub(tenant, m.controller, m.sendTimeout, m.logger)
	m.hubs[tenant] = hub
	return hub
}

func (m *HubManager) existing(tenant model.TenantID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[tenant]
}

// Publish broadcasts a session event to the tenant's connections
func (m *HubManager) Publish(ctx context.Context, tenant model.TenantID, eventType model.EventType, data any) {
	hub := m.existing(tenant)
	if hub == nil {
		return
	}

	switch eventType {
	case model.EventSessionReset:
		// Players of the previous session no longer exist
		hub.Detach()
		hub.Broadcast(ctx, eventType, data)
	case model.EventSessionClosed:
		hub.Broadcast(ctx, eventType, data)
		m.RemoveHub(tenant)
	default:
		hub.Broadcast(ctx, eventType, data)
	}
}

// RemoveHub closes a tenant's connections and forgets its hub
func (m *HubManager) RemoveHub(tenant model.TenantID) {
	m.mu.Lock()
	hub, ok := m.hubs[tenant]
	delete(m.hubs, tenant)
	m.mu.Unlock()

	if ok {
		hub.CloseAll()
		m.logger.Info("hub removed", slog.String("tenant", string(tenant)))
	}
}

// CloseAll closes every hub's connections
func (m *HubManager) CloseAll() {
	m.mu.Lock()
	hubs := m.hubs
	m.hubs = make(map[model.TenantID]*Hub)
	m.mu.Unlock()

	for _, hub := range hubs {
		hub.CloseAll()
	}
}
