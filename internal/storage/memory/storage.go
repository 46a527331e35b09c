package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	sessions map[model.TenantID]*model.GameSession
	configs  map[string]model.GameConfig
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions: make(map[model.TenantID]*model.GameSession),
		configs:  make(map[string]model.GameConfig),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Tenant] = session.Clone()
	return nil
}

func (s *Storage) GetSession(ctx context.Context, tenant model.TenantID) (*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tenant]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *Storage) DeleteSession(ctx context.Context, tenant model.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenant)
	return nil
}

func (s *Storage) ListTenants(ctx context.Context) ([]model.TenantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenants := make([]model.TenantID, 0, len(s.sessions))
	for tenant := range s.sessions {
		tenants = append(tenants, tenant)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i] < tenants[j] })
	return tenants, nil
}

// Config operations

func (s *Storage) SaveConfig(ctx context.Context, key string, cfg model.GameConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[key] = cfg
	return nil
}

func (s *Storage) GetConfig(ctx context.Context, key string) (*model.GameConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[key]
	if !ok {
		return nil, model.ErrConfigNotFound
	}
	return &cfg, nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}
