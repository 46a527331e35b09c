package ratelimit

import (
	"context"
	"time"
)

// Policy is an allowance of attempts per window
type Policy struct {
	MaxAttempts int           `mapstructure:"max"`
	Window      time.Duration `mapstructure:"window"`
}

// Policies holds the allowance for each throttled action
type Policies struct {
	Join  Policy // per remote address
	Guess Policy // per player
	Admin Policy // per tenant
}

// DefaultPolicies returns the default allowances
func DefaultPolicies() Policies {
	return Policies{
		Join:  Policy{MaxAttempts: 5, Window: time.Minute},
		Guess: Policy{MaxAttempts: 10, Window: 10 * time.Second},
		Admin: Policy{MaxAttempts: 20, Window: time.Minute},
	}
}

// Check applies the policy to key using the given limiter
func (p Policy) Check(ctx context.Context, limiter Checker, key string) error {
	return limiter.CheckLimit(ctx, key, p.MaxAttempts, p.Window)
}

// JoinKey scopes join attempts to a remote address within a tenant
func JoinKey(tenant, remote string) string {
	return "join:" + tenant + ":" + remote
}

// GuessKey scopes guess and bet attempts to a player token
func GuessKey(tenant, playerToken string) string {
	return "guess:" + tenant + ":" + playerToken
}

// AdminKey scopes admin actions to a remote address within a tenant
func AdminKey(tenant, remote string) string {
	return "admin:" + tenant + ":" + remote
}

// CreateKey scopes session creation to a remote address within a tenant
func CreateKey(tenant, remote string) string {
	return "create:" + tenant + ":" + remote
}
