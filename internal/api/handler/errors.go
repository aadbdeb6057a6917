package handler

import (
	"net/http"

	"github.com/mcoot/arenasession/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// Re-export error codes
const (
	CodeInvalidRequest       = apierr.CodeInvalidRequest
	CodeSessionNotFound      = apierr.CodeSessionNotFound
	CodeLobbyNotFound        = apierr.CodeLobbyNotFound
	CodeLobbyLocked          = apierr.CodeLobbyLocked
	CodeNoMatchmakingSession = apierr.CodeNoMatchmakingSession
	CodeNoActivePhase        = apierr.CodeNoActivePhase
	CodeWrongPhase           = apierr.CodeWrongPhase
	CodeUnknownScene         = apierr.CodeUnknownScene
	CodeNoPlayers            = apierr.CodeNoPlayers
	CodeAvatarNotFound       = apierr.CodeAvatarNotFound
	CodeIdentityConflict     = apierr.CodeIdentityConflict
	CodeConfiguration        = apierr.CodeConfiguration
	CodeUsernameExists       = apierr.CodeUsernameExists
	CodeInvalidCredentials   = apierr.CodeInvalidCredentials
	CodeUnavailable          = apierr.CodeUnavailable
	CodeInternalError        = apierr.CodeInternalError
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return apierr.NewInternalError()
}
