package redis

import (
	"fmt"

	"github.com/mcoot/arenasession/internal/model"
)

// Key prefix for all arena data
const keyPrefix = "arena"

// sessionKey returns the Redis key for a SessionRecord
func sessionKey(identity model.PlayerIdentity) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, identity)
}

// sessionIndexKey returns the Redis key for the SET of session record keys
func sessionIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}

// accountKey returns the Redis key for an Account
func accountKey(username string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, username)
}

// lobbyKey returns the Redis key for a matchmaking lobby
func lobbyKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:lobby:%s", keyPrefix, code)
}

// allocationKey returns the Redis key for a relay allocation, by join code
func allocationKey(code model.JoinCode) string {
	return fmt.Sprintf("%s:alloc:%s", keyPrefix, code)
}
