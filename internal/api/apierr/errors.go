package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/arenasession/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeLobbyNotFound        = "LOBBY_NOT_FOUND"
	CodeLobbyLocked          = "LOBBY_LOCKED"
	CodeNoMatchmakingSession = "NO_MATCHMAKING_SESSION"
	CodeNoActivePhase        = "NO_ACTIVE_PHASE"
	CodeWrongPhase           = "WRONG_PHASE"
	CodeUnknownScene         = "UNKNOWN_SCENE"
	CodeNoPlayers            = "NO_PLAYERS"
	CodeAvatarNotFound       = "AVATAR_NOT_FOUND"
	CodeIdentityConflict     = "IDENTITY_CONFLICT"
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeUnavailable          = "UNAVAILABLE"
	CodeInternalError        = "INTERNAL_ERROR"
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
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotFound, "Session record not found"}}
	case errors.Is(err, model.ErrLobbyNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeLobbyNotFound, "Lobby not found"}}
	case errors.Is(err, model.ErrLobbyLocked):
		return &httpError{http.StatusConflict, APIError{CodeLobbyLocked, "Lobby is locked"}}
	case errors.Is(err, model.ErrNoMatchmakingSession):
		return &httpError{http.StatusConflict, APIError{CodeNoMatchmakingSession, "No matchmaking session"}}
	case errors.Is(err, model.ErrNoActivePhase):
		return &httpError{http.StatusConflict, APIError{CodeNoActivePhase, "No phase is active"}}
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, err.Error()}}
	case errors.Is(err, model.ErrUnknownScene):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownScene, err.Error()}}
	case errors.Is(err, model.ErrNoPlayers):
		return &httpError{http.StatusConflict, APIError{CodeNoPlayers, "No players have spawned in the lobby"}}
	case errors.Is(err, model.ErrAvatarNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAvatarNotFound, "No living avatar for that client"}}
	case errors.Is(err, model.ErrIdentityConflict):
		return &httpError{http.StatusConflict, APIError{CodeIdentityConflict, "Identity already connected"}}
	case errors.Is(err, model.ErrConfiguration):
		return &httpError{http.StatusInternalServerError, APIError{CodeConfiguration, err.Error()}}

	// Map identity errors
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}

	// The authority loop did not answer in time
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeUnavailable, "Server is busy"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
