package model

import "github.com/go-gl/mathgl/mgl64"

// LifeStateChanged is published whenever an avatar's life state changes
type LifeStateChanged struct {
	ClientID      ClientID
	NewLifeState  LifeState
	CharacterName string
}

// ObjectiveDefeated is published when a scenario win condition fires
type ObjectiveDefeated struct {
	Name string
}

// ClientConnected is published after a connection is admitted
type ClientConnected struct {
	ClientID ClientID
	Identity PlayerIdentity
}

// ClientDisconnected is published when a transport session ends
type ClientDisconnected struct {
	ClientID ClientID
}

// LoadCompleted is published when every client finished (or timed out) loading a scene
type LoadCompleted struct {
	Scene     string
	Mode      LoadMode
	Completed []ClientID
	TimedOut  []ClientID
}

// ClientSynchronized is published when a client joining mid-scene has caught up
type ClientSynchronized struct {
	ClientID ClientID
}

// ProgressUpdated is published when any loading tracker changes
type ProgressUpdated struct {
	ClientID ClientID
	Progress float64
}

// MovementIntent is a client request to move its own avatar
type MovementIntent struct {
	ClientID  ClientID
	Direction mgl64.Vec3
}

// RotationIntent is a client request to rotate its own avatar
type RotationIntent struct {
	ClientID   ClientID
	AngleDelta float64
}
