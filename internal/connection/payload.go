package connection

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcoot/arenasession/internal/model"
)

// EncodePayload serializes the handshake payload
func EncodePayload(p model.ConnectionPayload) ([]byte, error) {
	return msgpack.Marshal(&p)
}

// DecodePayload parses a handshake payload, rejecting ones without an identity
func DecodePayload(data []byte) (model.ConnectionPayload, error) {
	var p model.ConnectionPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return model.ConnectionPayload{}, fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}
	if p.StableIdentity == "" {
		return model.ConnectionPayload{}, fmt.Errorf("%w: missing stable identity", model.ErrMalformedPayload)
	}
	return p, nil
}
