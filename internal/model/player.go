package model

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxPlayerNameLength is the longest accepted player name, in runes
	MaxPlayerNameLength = 20
)

var playerNamePattern = regexp.MustCompile(`^[\p{L}\p{N} _.'\-]+$`)

// Player represents a participant in a game session
type Player struct {
	Name     string    `json:"name"`
	Token    string    `json:"token"` // capability for this player's own actions
	Score    int       `json:"score"`
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
}

// NormalizePlayerName trims surrounding whitespace and validates the result
func NormalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	length := utf8.RuneCountInString(name)
	if length == 0 {
		return "", NewValidationError("name", "must not be empty")
	}
	if length > MaxPlayerNameLength {
		return "", NewValidationError("name", "must be at most 20 characters")
	}
	if !playerNamePattern.MatchString(name) {
		return "", NewValidationError("name", "may only contain letters, digits, spaces and _ - . '")
	}
	return name, nil
}

// PublicPlayer is the client-visible view of a player (no token)
type PublicPlayer struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	IsAdmin bool   `json:"is_admin"`
}

// Public returns the client-visible view of the player
func (p Player) Public() PublicPlayer {
	return PublicPlayer{Name: p.Name, Score: p.Score, IsAdmin: p.IsAdmin}
}
