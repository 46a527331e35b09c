package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying client so other components can share the pool
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	// Session blob and tenant index go in one transaction so readers never see one without the other
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.Tenant), data, s.cfg.SessionTTL)
		pipe.SAdd(ctx, tenantsIndexKey(), string(session.Tenant))
		return nil
	})
	return err
}

func (s *Storage) GetSession(ctx context.Context, tenant model.TenantID) (*model.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(tenant)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, tenant model.TenantID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(tenant))
		pipe.SRem(ctx, tenantsIndexKey(), string(tenant))
		return nil
	})
	return err
}

func (s *Storage) ListTenants(ctx context.Context) ([]model.TenantID, error) {
	members, err := s.client.SMembers(ctx, tenantsIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	// Drop index entries whose session expired through TTL
	tenants := make([]model.TenantID, 0, len(members))
	var stale []any
	for _, m := range members {
		exists, err := s.client.Exists(ctx, sessionKey(model.TenantID(m))).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			stale = append(stale, m)
			continue
		}
		tenants = append(tenants, model.TenantID(m))
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, tenantsIndexKey(), stale...).Err(); err != nil {
			return nil, err
		}
	}

	sort.Slice(tenants, func(i, j int) bool { return tenants[i] < tenants[j] })
	return tenants, nil
}

// Config operations

func (s *Storage) SaveConfig(ctx context.Context, key string, cfg model.GameConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, configKey(key), data, s.cfg.ConfigTTL).Err()
}

func (s *Storage) GetConfig(ctx context.Context, key string) (*model.GameConfig, error) {
	data, err := s.client.Get(ctx, configKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrConfigNotFound
		}
		return nil, err
	}

	var cfg model.GameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
