package model

import (
	"errors"
	"fmt"
	"time"
)

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrGameNotStarted    = errors.New("game has not been started")
	ErrStateConflict     = errors.New("action not allowed in the current state")
	ErrPlaylistExhausted = errors.New("no songs left in the playlist")

	// Round errors
	ErrRoundNotActive  = fmt.Errorf("%w: no round is active", ErrStateConflict)
	ErrAlreadyGuessed  = fmt.Errorf("%w: player has already guessed this round", ErrStateConflict)
	ErrNoGuess         = fmt.Errorf("%w: player has not guessed this round", ErrStateConflict)
	ErrSessionReplaced = fmt.Errorf("%w: session was reset", ErrStateConflict)
	ErrGameEnded       = fmt.Errorf("%w: game has ended", ErrStateConflict)

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player name already taken")

	// Admin errors
	ErrPermissionDenied = errors.New("permission denied")

	// Storage errors
	ErrConfigNotFound = errors.New("config not found")

	// Catalog errors
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrTrackNotFound    = errors.New("track not found")

	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited is matched by every *RateLimitedError
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError reports malformed or out-of-range input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Is lets errors.Is(err, ErrValidation) match any validation error
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitedError is returned when an actor exceeded its allowance for an action
type RateLimitedError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Millisecond))
}

// Is lets errors.Is(err, ErrRateLimited) match any rate limit error
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
