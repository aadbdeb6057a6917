// Package netcode carries sessions over websockets with msgpack frames.
package netcode

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcoot/arenasession/internal/model"
)

// Kind identifies the message carried by an Envelope
type Kind string

const (
	// Handshake
	KindHandshake Kind = "handshake"
	KindAccepted  Kind = "accepted"
	KindRejected  Kind = "rejected"

	// Client to server
	KindMovementIntent Kind = "movement_intent"
	KindRotationIntent Kind = "rotation_intent"
	KindLoadProgress   Kind = "load_progress"
	KindSynchronized   Kind = "synchronized"

	// Server to client
	KindConnectedSound    = Kind(model.NotifyConnectedSound)
	KindStopLoadingScreen = Kind(model.NotifyStopLoadingScreen)
	KindLoadScene         Kind = "load_scene"
	KindFieldUpdate       Kind = "field_update"
	KindFieldRemoved      Kind = "field_removed"
)

// Envelope is one websocket frame. Only the fields of its Kind are set.
type Envelope struct {
	Kind     Kind           `msgpack:"kind"`
	ClientID model.ClientID `msgpack:"client_id,omitempty"`

	// handshake
	Payload  []byte `msgpack:"payload,omitempty"`
	RelayKey []byte `msgpack:"relay_key,omitempty"`
	Reason   string `msgpack:"reason,omitempty"`

	// intents and progress
	Direction mgl64.Vec3 `msgpack:"direction,omitempty"`
	Angle     float64    `msgpack:"angle,omitempty"`
	Progress  float64    `msgpack:"progress,omitempty"`

	// scenes
	Scene string `msgpack:"scene,omitempty"`
	Load  int    `msgpack:"load,omitempty"`

	// replicated fields
	Field string         `msgpack:"field,omitempty"`
	Owner model.ClientID `msgpack:"owner,omitempty"`
	Value any            `msgpack:"value,omitempty"`
}

// Encode serializes e
func Encode(e Envelope) ([]byte, error) {
	data, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind, err)
	}
	return data, nil
}

// Decode parses a frame
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Kind == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing kind")
	}
	return e, nil
}
