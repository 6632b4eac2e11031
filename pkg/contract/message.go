package contract

import (
	"context"
	"encoding/json"
)

// KindHandshake is the kind of the plugin's first frame. It cannot be registered.
const KindHandshake = "handshake"

// Message is the envelope carried in every frame.
// Requests and responses share an ID; Response marks the direction.
type Message struct {
	ID       uint64          `json:"id"`
	Kind     string          `json:"kind"`
	Response bool            `json:"response,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Manifest is the handshake payload that introduces the plugin to the host.
type Manifest struct {
	Name           string   `json:"name"`
	ID             uint64   `json:"id"`
	Version        uint64   `json:"version"`
	ChainID        uint64   `json:"chain_id"`
	Session        string   `json:"session,omitempty"`
	SupportedKinds []string `json:"supported_kinds"`
}

// Request is a host request as seen by a Handler.
type Request struct {
	ID      uint64
	Kind    string
	Payload json.RawMessage
}

// Decode unmarshals the request payload into v.
func (r Request) Decode(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

// Host lets a handler issue requests back to the FSM host.
type Host interface {
	Call(ctx context.Context, kind string, payload any) (json.RawMessage, error)
}
