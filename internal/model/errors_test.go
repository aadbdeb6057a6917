package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"connect", &ConnectError{Op: "dial", Err: errors.New("refused")}, ErrConnect},
		{"identity conflict", &IdentityConflictError{Identity: "a", Existing: 1, Incoming: 2}, ErrIdentityConflict},
		{"configuration", &ConfigurationError{What: "no spawn points"}, ErrConfiguration},
		{"stale reference", &StaleReferenceError{ClientID: 7, Op: "spawn"}, ErrStaleReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestConnectErrorUnwrapsCause(t *testing.T) {
	err := &ConnectError{Op: "relay", Err: ErrNoMatchmakingSession}

	assert.ErrorIs(t, err, ErrNoMatchmakingSession)
	assert.ErrorIs(t, err, ErrConnect)
	assert.NotErrorIs(t, err, ErrIdentityConflict)
}

func TestAppearanceIDTextRoundTrip(t *testing.T) {
	id := NewAppearanceID()

	text, err := id.MarshalText()
	assert.NoError(t, err)

	var parsed AppearanceID
	assert.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, id, parsed)
	assert.False(t, parsed.IsNil())
	assert.True(t, NilAppearance.IsNil())
}
