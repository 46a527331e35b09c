// Package admin issues and checks the capability that gates session-control actions.
package admin

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/yeargame/internal/dependencies/random"
	"github.com/mcoot/yeargame/internal/model"
)

// TokenPrefix marks admin tokens so they are never confused with player tokens
const TokenPrefix = "adm_"

// Config holds configuration for the admin credential manager
type Config struct {
	// TokenLifetime is how long an issued credential stays valid; there is no renewal
	TokenLifetime time.Duration
	// HashCost is the bcrypt cost used for stored token hashes
	HashCost int
}

// DefaultConfig returns default admin configuration
func DefaultConfig() Config {
	return Config{
		TokenLifetime: 24 * time.Hour,
		HashCost:      bcrypt.DefaultCost,
	}
}

// Manager issues admin credentials and validates presented tokens against them
type Manager struct {
	random random.Random
	cfg    Config
}

// New creates a new Manager
func New(random random.Random, cfg Config) *Manager {
	defaults := DefaultConfig()
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = defaults.TokenLifetime
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = defaults.HashCost
	}
	return &Manager{random: random, cfg: cfg}
}

// Issue creates a new admin token and the credential to store for it.
// The plaintext token is returned once and never persisted.
func (m *Manager) Issue(now time.Time) (string, model.AdminCredential, error) {
	token := TokenPrefix + m.random.Token(32)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), m.cfg.HashCost)
	if err != nil {
		return "", model.AdminCredential{}, err
	}

	return token, model.AdminCredential{
		TokenHash: string(hash),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.TokenLifetime),
	}, nil
}

// Validate reports whether token matches the credential and the credential has not expired
func (m *Manager) Validate(cred model.AdminCredential, token string, now time.Time) bool {
	if token == "" || cred.TokenHash == "" || !strings.HasPrefix(token, TokenPrefix) {
		return false
	}
	if now.After(cred.ExpiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(cred.TokenHash), []byte(token)) == nil
}

// Authorize is Validate as an error: ErrPermissionDenied when the token is not accepted
func (m *Manager) Authorize(cred model.AdminCredential, token string, now time.Time) error {
	if !m.Validate(cred, token, now) {
		return model.ErrPermissionDenied
	}
	return nil
}
