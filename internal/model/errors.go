package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Taxonomy roots, matched with errors.Is
	ErrConnect          = errors.New("connect failed")
	ErrIdentityConflict = errors.New("identity already connected")
	ErrConfiguration    = errors.New("invalid configuration")
	ErrStaleReference   = errors.New("stale client reference")

	// Connection errors
	ErrNoMatchmakingSession = errors.New("no matchmaking session")
	ErrMalformedPayload     = errors.New("malformed connection payload")
	ErrRelayKeyMismatch     = errors.New("relay key mismatch")
	ErrRejected             = errors.New("connection rejected")

	// Replication errors
	ErrNotAuthority = errors.New("writer is not the field authority")

	// Session errors
	ErrSessionNotFound = errors.New("session record not found")

	// Matchmaking errors
	ErrLobbyNotFound    = errors.New("lobby not found")
	ErrLobbyLocked      = errors.New("lobby is locked")
	ErrJoinCodeNotFound = errors.New("join code not found")

	// Identity errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")

	// Phase errors
	ErrNoActivePhase = errors.New("no active phase")
	ErrWrongPhase    = errors.New("operation not valid in the current phase")
	ErrUnknownScene  = errors.New("unknown scene")
	ErrNoPlayers     = errors.New("no players have spawned")

	// Gameplay errors
	ErrAvatarNotFound = errors.New("no living avatar for client")
)

// ConnectError reports a transport or allocation failure during connection setup
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect: %s: %v", e.Op, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

// IdentityConflictError rejects a second connection claiming a live identity
type IdentityConflictError struct {
	Identity PlayerIdentity
	Existing ClientID
	Incoming ClientID
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("identity %q already connected as client %d, rejecting client %d", e.Identity, e.Existing, e.Incoming)
}

func (e *IdentityConflictError) Is(target error) bool { return target == ErrIdentityConflict }

// ConfigurationError halts phase activation on invalid setup
type ConfigurationError struct {
	What string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.What
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// StaleReferenceError reports an operation against a client with no session record
type StaleReferenceError struct {
	ClientID ClientID
	Op       string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s: no session record for client %d", e.Op, e.ClientID)
}

func (e *StaleReferenceError) Is(target error) bool { return target == ErrStaleReference }
