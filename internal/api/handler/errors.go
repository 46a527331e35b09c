package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/yeargame/internal/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// Re-export error codes
const (
	CodeValidation        = apierr.CodeValidation
	CodeInvalidRequest    = apierr.CodeInvalidRequest
	CodeUnauthorized      = apierr.CodeUnauthorized
	CodePermissionDenied  = apierr.CodePermissionDenied
	CodeGameNotStarted    = apierr.CodeGameNotStarted
	CodePlayerExists      = apierr.CodePlayerExists
	CodeStateConflict     = apierr.CodeStateConflict
	CodePlaylistExhausted = apierr.CodePlaylistExhausted
	CodeRateLimited       = apierr.CodeRateLimited
	CodeNotFound          = apierr.CodeNotFound
	CodeInternalError     = apierr.CodeInternalError
)

// WriteError writes an error response, logging errors that map to internal_error
func WriteError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if apierr.IsInternal(err) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}
