package model

import "time"

// LobbyCode is a human-readable identifier for joining a matchmaking lobby
type LobbyCode string

// JoinCode resolves to a relay allocation
type JoinCode string

// LobbyInfo is the matchmaking session a host advertises
type LobbyInfo struct {
	ID            string            `json:"id"`
	Code          LobbyCode         `json:"code"`
	Name          string            `json:"name"`
	HostIdentity  PlayerIdentity    `json:"host_identity"`
	MaxPlayers    int               `json:"max_players"`
	Locked        bool              `json:"locked"`
	Data          map[string]string `json:"data"`
	CreatedAt     time.Time         `json:"created_at"`
	LastHeartbeat time.Time         `json:"last_heartbeat"`
}

// LobbyDataRelayJoinCode is the lobby data key carrying the relay join code
const LobbyDataRelayJoinCode = "relay_join_code"

// RelayJoinCode returns the join code published by the host, if any
func (l *LobbyInfo) RelayJoinCode() JoinCode {
	if l == nil || l.Data == nil {
		return ""
	}
	return JoinCode(l.Data[LobbyDataRelayJoinCode])
}

// Allocation is a relay reservation sized for a session
type Allocation struct {
	AllocationID string    `json:"allocation_id"`
	Region       string    `json:"region"`
	Endpoint     string    `json:"endpoint"`
	Key          []byte    `json:"key"`
	MaxPlayers   int       `json:"max_players"`
	JoinCode     JoinCode  `json:"join_code"`
	CreatedAt    time.Time `json:"created_at"`
}

// RelayServerData is what the transport needs to reach a relay endpoint
type RelayServerData struct {
	AllocationID string
	Endpoint     string
	Key          []byte
	IsHost       bool
}

// ServerData derives the host-side credentials
func (a *Allocation) ServerData() RelayServerData {
	return RelayServerData{AllocationID: a.AllocationID, Endpoint: a.Endpoint, Key: a.Key, IsHost: true}
}

// ClientData derives the joining-side credentials
func (a *Allocation) ClientData() RelayServerData {
	return RelayServerData{AllocationID: a.AllocationID, Endpoint: a.Endpoint, Key: a.Key}
}
