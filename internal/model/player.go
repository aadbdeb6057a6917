package model

import (
	"strconv"
	"time"
)

// ClientID is the ephemeral per-connection identity assigned by the transport
type ClientID uint64

// ServerClientID is the client id the hosting process uses for its own writes
const ServerClientID ClientID = 0

func (id ClientID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// PlayerIdentity uniquely identifies a player across reconnections
type PlayerIdentity string

// ConnectionPayload is attached to the connect handshake
type ConnectionPayload struct {
	StableIdentity PlayerIdentity `msgpack:"stable_identity" json:"stable_identity"`
	DisplayName    string         `msgpack:"display_name" json:"display_name"`
	DebugFlag      bool           `msgpack:"debug_flag" json:"debug_flag"`
}

// Account is a registered identity that can sign in from any machine
type Account struct {
	Identity     PlayerIdentity
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}
