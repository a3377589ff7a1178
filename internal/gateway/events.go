package gateway

import (
	"encoding/json"

	"github.com/lingora/gateway/internal/domain"
)

// Wire event names. Signaling payloads pass through verbatim; the
// gateway never inspects offer/answer content.
const (
	EvtRoomJoined        = "room-joined"
	EvtParticipantJoined = "participant-joined"
	EvtParticipantLeft   = "participant-left"

	EvtOffer        = "offer"
	EvtAnswer       = "answer"
	EvtICECandidate = "ice-candidate"

	EvtMute             = "mute"
	EvtSpeaking         = "speaking"
	EvtScreenShareStart = "screen-share-start"
	EvtScreenShareStop  = "screen-share-stop"
	EvtChatMessage      = "chat-message"
)

// IsTargetedEvent reports whether the event is peer-to-peer call setup.
func IsTargetedEvent(e string) bool {
	switch e {
	case EvtOffer, EvtAnswer, EvtICECandidate:
		return true
	}
	return false
}

// IsRoomEvent reports whether the event may be broadcast by a member.
func IsRoomEvent(e string) bool {
	switch e {
	case EvtMute, EvtSpeaking, EvtScreenShareStart, EvtScreenShareStop, EvtChatMessage:
		return true
	}
	return false
}

// Peer tags relayed events with the sender identity.
type Peer struct {
	ConnID domain.ConnID `json:"conn_id"`
	domain.MemberInfo
}

// Outbound is the envelope delivered to clients.
type Outbound struct {
	Type     string              `json:"type"`
	Room     domain.RoomID       `json:"room,omitempty"`
	From     *Peer               `json:"from,omitempty"`
	Members  []domain.MemberInfo `json:"members,omitempty"`
	Capacity int                 `json:"capacity,omitempty"`
	Payload  json.RawMessage     `json:"payload,omitempty"`
}
