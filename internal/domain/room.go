package domain

type (
	RoomID string
	ConnID string
)

type RoomKind string

const (
	// RoomScheduled is bound to a lesson reservation: eligibility and the
	// join window come from the Reservation, capacity is teacher + student.
	RoomScheduled RoomKind = "scheduled"
	// RoomOpen is an ad-hoc voice room gated only by authentication
	// and capacity.
	RoomOpen RoomKind = "open"
)

// ScheduledRoomCapacity is fixed: one teacher, one student.
const ScheduledRoomCapacity = 2

// MemberInfo is the room-visible identity of a joined connection.
type MemberInfo struct {
	ID   PrincipalID `json:"id"`
	Name string      `json:"name"`
	Role Role        `json:"role"`
}

// NewMemberInfo keeps construction obvious in the gateway.
func NewMemberInfo(p Principal) MemberInfo {
	return MemberInfo{ID: p.ID, Name: p.DisplayName, Role: p.Role}
}
