package ws

import "encoding/json"

// Inbound client envelope types.
const (
	TypeJoin      = "join"
	TypeLeave     = "leave"
	TypeSignal    = "signal"
	TypeBroadcast = "broadcast"
	TypePing      = "ping"
)

type Inbound struct {
	Type   string `json:"type"`
	Room   string `json:"room,omitempty"`
	Target string `json:"target,omitempty"`
	// Event names the relayed signal: offer/answer/ice-candidate for
	// targeted sends, mute/speaking/screen-share-*/chat-message for
	// room broadcasts.
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type errorEnvelope struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ackEnvelope struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}
