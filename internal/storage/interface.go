package storage

import (
	"context"

	"github.com/mcoot/yeargame/internal/model"
)

// Storage defines the interface for data persistence.
// Implementations return copies: mutating a returned session never changes stored state
// until it is saved again.
type Storage interface {
	// Session operations
	SaveSession(ctx context.Context, session *model.GameSession) error
	GetSession(ctx context.Context, tenant model.TenantID) (*model.GameSession, error)
	DeleteSession(ctx context.Context, tenant model.TenantID) error
	ListTenants(ctx context.Context) ([]model.TenantID, error)

	// Durable config operations
	SaveConfig(ctx context.Context, key string, cfg model.GameConfig) error
	GetConfig(ctx context.Context, key string) (*model.GameConfig, error)

	Close() error
}
