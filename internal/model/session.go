package model

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// SessionRecord is the cross-connection state of one stable identity
type SessionRecord struct {
	ClientID            ClientID       `json:"client_id"`
	PlayerIdentity      PlayerIdentity `json:"player_identity"`
	PlayerName          string         `json:"player_name"`
	PlayerNumber        int            `json:"player_number"`
	IsConnected         bool           `json:"is_connected"`
	PlayerPosition      mgl64.Vec3     `json:"player_position"`
	PlayerRotation      mgl64.Quat     `json:"player_rotation"`
	Alive               bool           `json:"alive"`
	AvatarAppearanceID  AppearanceID   `json:"avatar_appearance_id"`
	HasCharacterSpawned bool           `json:"has_character_spawned"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Reinitialize clears round-scoped state while keeping the identity mapping
func (r *SessionRecord) Reinitialize() {
	r.HasCharacterSpawned = false
}

// Checkpoint stores an avatar's transient state before the avatar goes away
func (r *SessionRecord) Checkpoint(position mgl64.Vec3, rotation mgl64.Quat, alive bool) {
	r.PlayerPosition = position
	r.PlayerRotation = rotation
	r.Alive = alive
	r.HasCharacterSpawned = true
}
