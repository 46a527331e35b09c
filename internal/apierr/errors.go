// Package apierr maps domain errors to machine-readable codes for every client surface.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mcoot/yeargame/internal/model"
)

// APIError represents an error returned to a client
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds, rate_limited only
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeValidation        = "validation_error"
	CodeInvalidRequest    = "invalid_request"
	CodeUnauthorized      = "unauthorized"
	CodePermissionDenied  = "permission_denied"
	CodeGameNotStarted    = "game_not_started"
	CodePlayerExists      = "player_exists"
	CodeStateConflict     = "state_conflict"
	CodePlaylistExhausted = "playlist_exhausted"
	CodeRateLimited       = "rate_limited"
	CodeNotFound          = "not_found"
	CodeInternalError     = "internal_error"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	status, apiError := From(err)
	w.Header().Set("Content-Type", "application/json")
	if apiError.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiError.RetryAfter))
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiError})
}

// IsInternal reports whether err maps to internal_error and should be logged by the caller
func IsInternal(err error) bool {
	status, _ := From(err)
	return status == http.StatusInternalServerError
}

// From converts an error to its HTTP status and client-facing APIError.
// Unrecognized errors become internal_error without exposing their message.
func From(err error) (int, APIError) {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.apiError
	}

	var rl *model.RateLimitedError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests, APIError{
			Code:       CodeRateLimited,
			Message:    "Too many requests",
			RetryAfter: retrySeconds(rl.RetryAfter),
		}
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, APIError{Code: CodeValidation, Message: ve.Error()}
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden, APIError{Code: CodePermissionDenied, Message: "Permission denied"}
	case errors.Is(err, model.ErrGameNotStarted):
		return http.StatusConflict, APIError{Code: CodeGameNotStarted, Message: "No game has been started"}
	case errors.Is(err, model.ErrPlayerExists):
		return http.StatusConflict, APIError{Code: CodePlayerExists, Message: "Player name already taken"}
	case errors.Is(err, model.ErrPlaylistExhausted):
		return http.StatusConflict, APIError{Code: CodePlaylistExhausted, Message: "No songs left in the playlist"}
	case errors.Is(err, model.ErrStateConflict):
		return http.StatusConflict, APIError{Code: CodeStateConflict, Message: err.Error()}
	case errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrPlayerNotFound),
		errors.Is(err, model.ErrPlaylistNotFound):
		return http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Not found"}
	default:
		return http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}
	}
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
