// Package policy decides whether a principal may join a room.
package policy

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingora/gateway/internal/domain"
)

// ErrNotFound is returned by oracles when no reservation exists for an id.
var ErrNotFound = errors.New("reservation not found")

// ReservationOracle is the external read-only booking store. It is
// queried fresh on every authorize: a reservation can be cancelled
// between two attempts.
type ReservationOracle interface {
	GetReservation(ctx context.Context, id domain.RoomID) (domain.Reservation, error)
}

type Reason string

const (
	ReasonNotFound       Reason = "not_found"
	ReasonNotParticipant Reason = "not_participant"
	ReasonInvalidStatus  Reason = "invalid_status"
	ReasonLessonEnded    Reason = "lesson_ended"
	ReasonTooEarly       Reason = "too_early"
	// ReasonLookupFailed collapses oracle outages and malformed records
	// into one retryable code; internals never reach the client.
	ReasonLookupFailed Reason = "lookup_failed"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision        { return Decision{Allowed: true} }
func Deny(r Reason) Decision { return Decision{Reason: r} }

type Engine struct {
	Oracle ReservationOracle
	// Now is the clock source, server wall-clock only. Tests inject a
	// fixed one.
	Now func() time.Time
	Loc *time.Location

	// StudentLead bounds how long before lesson start a student may
	// join. TeacherLead does the same for teachers when non-zero;
	// zero leaves teachers unrestricted.
	StudentLead time.Duration
	TeacherLead time.Duration

	// Timeout bounds every oracle lookup; on expiry the join fails
	// closed.
	Timeout time.Duration
}

// Authorize runs the join rule sequence for one attempt. Open rooms
// carry no identity constraint beyond authentication: capacity is the
// registry's to enforce at commit time, the only place it can be
// enforced without racing a concurrent join.
func (e *Engine) Authorize(ctx context.Context, p domain.Principal, roomID domain.RoomID, kind domain.RoomKind) Decision {
	if kind != domain.RoomScheduled {
		return Allow()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()
	res, err := e.Oracle.GetReservation(lookupCtx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Deny(ReasonNotFound)
		}
		log.Warn().Err(err).Str("module", "policy").Str("room", string(roomID)).Msg("reservation lookup failed")
		return Deny(ReasonLookupFailed)
	}

	if !res.IsParty(p.ID) {
		return Deny(ReasonNotParticipant)
	}
	if !res.Status.Joinable() {
		return Deny(ReasonInvalidStatus)
	}

	start, err := res.StartAt(e.Loc)
	if err != nil {
		log.Error().Err(err).Str("module", "policy").Str("room", string(roomID)).Msg("bad reservation window")
		return Deny(ReasonLookupFailed)
	}
	end, err := res.EndAt(e.Loc)
	if err != nil {
		log.Error().Err(err).Str("module", "policy").Str("room", string(roomID)).Msg("bad reservation window")
		return Deny(ReasonLookupFailed)
	}

	now := e.Now()

	// Past the end the room is closed for good, every role included.
	if !now.Before(end) {
		return Deny(ReasonLessonEnded)
	}

	lead := e.leadFor(p.ID, res)
	if lead > 0 && start.Sub(now) > lead {
		return Deny(ReasonTooEarly)
	}

	return Allow()
}

func (e *Engine) leadFor(id domain.PrincipalID, res domain.Reservation) time.Duration {
	if id == res.StudentID {
		return e.StudentLead
	}
	return e.TeacherLead
}
