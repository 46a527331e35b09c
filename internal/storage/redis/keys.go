package redis

import (
	"fmt"

	"github.com/mcoot/yeargame/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "yeargame"

// sessionKey returns the Redis key for a tenant's GameSession
func sessionKey(tenant model.TenantID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, tenant)
}

// tenantsIndexKey returns the Redis key for the SET of tenants with a stored session
func tenantsIndexKey() string {
	return fmt.Sprintf("%s:idx:tenants", keyPrefix)
}

// configKey returns the Redis key for a durable GameConfig
func configKey(key string) string {
	return fmt.Sprintf("%s:config:%s", keyPrefix, key)
}
