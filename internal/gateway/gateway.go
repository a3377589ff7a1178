// Package gateway orchestrates authentication, authorization, room
// membership and signaling relay for one room subsystem. Several
// gateway instances (lesson rooms, open lobby rooms) coexist in one
// process, each over its own registry; nothing is process-global.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lingora/gateway/internal/domain"
	"github.com/lingora/gateway/internal/policy"
	"github.com/lingora/gateway/internal/registry"
)

// ErrConnClosed reports that the connection went away while an
// operation was in flight; the result is discarded, never committed.
var ErrConnClosed = errors.New("connection closed")

// ReconnectPolicy decides what a second connection of the same
// principal joining the same scheduled room does to the first.
type ReconnectPolicy string

const (
	// ReconnectEvict kicks the stale membership so a tab refresh can
	// get back in without waiting for the sweep.
	ReconnectEvict ReconnectPolicy = "evict"
	// ReconnectDeny rejects the new join as already_joined.
	ReconnectDeny ReconnectPolicy = "deny"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// Authorizer decides a single join attempt.
type Authorizer interface {
	Authorize(ctx context.Context, p domain.Principal, roomID domain.RoomID, kind domain.RoomKind) policy.Decision
}

type Gateway struct {
	auth      Authenticator
	authz     Authorizer
	rooms     *registry.Registry
	kind      domain.RoomKind
	reconnect ReconnectPolicy

	mu    sync.RWMutex
	conns map[domain.ConnID]*Conn
}

func New(auth Authenticator, authz Authorizer, rooms *registry.Registry, kind domain.RoomKind, reconnect ReconnectPolicy) *Gateway {
	return &Gateway{
		auth:      auth,
		authz:     authz,
		rooms:     rooms,
		kind:      kind,
		reconnect: reconnect,
		conns:     make(map[domain.ConnID]*Conn),
	}
}

// Rooms exposes the registry for observability endpoints.
func (g *Gateway) Rooms() *registry.Registry { return g.rooms }

// Connect authenticates the token and registers the connection. On
// error the caller closes the transport; no partially-authenticated
// state is ever registered.
func (g *Gateway) Connect(ctx context.Context, token string, sender registry.Sender, cancel func()) (*Conn, error) {
	p, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		ID:        domain.ConnID(uuid.NewString()),
		Principal: p,
		sender:    sender,
		cancel:    cancel,
		rooms:     make(map[domain.RoomID]struct{}),
	}
	g.mu.Lock()
	g.conns[c.ID] = c
	g.mu.Unlock()
	log.Info().Str("module", "gateway").Str("conn", string(c.ID)).Str("principal", string(p.ID)).Str("role", string(p.Role)).Msg("connected")
	return c, nil
}

// Join runs authorize-then-admit for one room. A nil Denial with nil
// error means the member is in and the snapshot is authoritative.
func (g *Gateway) Join(ctx context.Context, c *Conn, roomID domain.RoomID) (registry.Snapshot, *Denial, error) {
	if c.inRoom(roomID) {
		return registry.Snapshot{}, newDenial(CodeAlreadyJoined), nil
	}
	if g.kind == domain.RoomScheduled {
		// A lesson connection is bound to its first room for life.
		if bound := c.boundRoom(); bound != "" && bound != roomID {
			return registry.Snapshot{}, newDenial(CodeAlreadyJoined), nil
		}
	}

	dec := g.authz.Authorize(ctx, c.Principal, roomID, g.kind)
	if ctx.Err() != nil || c.isClosed() {
		// Disconnected while the check was in flight: discard.
		return registry.Snapshot{}, nil, ErrConnClosed
	}
	if !dec.Allowed {
		return registry.Snapshot{}, denialFor(dec.Reason), nil
	}

	if g.kind == domain.RoomScheduled {
		if denial := g.resolveStale(c, roomID); denial != nil {
			return registry.Snapshot{}, denial, nil
		}
	} else {
		// Lobby connections hold a single active room: leave the rest
		// before admitting the new one.
		for _, prev := range c.Rooms() {
			g.Leave(c, prev)
		}
	}

	snap, err := g.rooms.Add(roomID, g.kind, c.ID, registry.Member{Info: c.info(), Sender: c.sender})
	switch {
	case errors.Is(err, registry.ErrRoomFull):
		// Allow-then-full races resolve to Deny.
		return registry.Snapshot{}, newDenial(CodeRoomFull), nil
	case errors.Is(err, registry.ErrAlreadyJoined):
		return registry.Snapshot{}, newDenial(CodeAlreadyJoined), nil
	case err != nil:
		return registry.Snapshot{}, newDenial(string(policy.ReasonLookupFailed)), nil
	}

	if !c.commitRoom(roomID) {
		// Closed between admit and commit: roll back, no partial join.
		g.rooms.Remove(roomID, c.ID)
		return registry.Snapshot{}, nil, ErrConnClosed
	}

	g.broadcast(roomID, Outbound{Type: EvtParticipantJoined, Room: roomID, From: c.peer()}, c.ID)
	log.Info().Str("module", "gateway").Str("conn", string(c.ID)).Str("room", string(roomID)).Msg("joined")
	return snap, nil, nil
}

// resolveStale applies the reconnect policy when the principal is
// already joined to the scheduled room from another connection.
func (g *Gateway) resolveStale(c *Conn, roomID domain.RoomID) *Denial {
	for _, staleID := range g.rooms.Occupants(roomID, c.Principal.ID) {
		if staleID == c.ID {
			continue
		}
		if g.reconnect == ReconnectDeny {
			return newDenial(CodeAlreadyJoined)
		}
		if g.rooms.Remove(roomID, staleID) {
			if stale := g.conn(staleID); stale != nil {
				stale.dropRoom(roomID)
			}
			g.broadcast(roomID, Outbound{Type: EvtParticipantLeft, Room: roomID, From: &Peer{ConnID: staleID, MemberInfo: c.info()}}, staleID)
			log.Info().Str("module", "gateway").Str("conn", string(staleID)).Str("room", string(roomID)).Msg("stale membership evicted")
		}
	}
	return nil
}

// Leave is idempotent: a second call for an already-left room is a
// no-op with no duplicate broadcast.
func (g *Gateway) Leave(c *Conn, roomID domain.RoomID) {
	if !c.dropRoom(roomID) {
		return
	}
	if g.rooms.Remove(roomID, c.ID) {
		g.broadcast(roomID, Outbound{Type: EvtParticipantLeft, Room: roomID, From: c.peer()}, c.ID)
		log.Info().Str("module", "gateway").Str("conn", string(c.ID)).Str("room", string(roomID)).Msg("left")
	}
}

// Signal relays call-setup events to one peer sharing a room with the
// sender. Payloads pass through verbatim; delivery is best-effort and
// a vanished target is a silent no-op.
func (g *Gateway) Signal(c *Conn, target domain.ConnID, event string, payload json.RawMessage) {
	if !IsTargetedEvent(event) {
		log.Warn().Str("module", "gateway").Str("conn", string(c.ID)).Str("event", event).Msg("unknown signal event dropped")
		return
	}
	for _, roomID := range c.Rooms() {
		if s, ok := g.rooms.MemberSender(roomID, target); ok {
			g.send(s, Outbound{Type: event, Room: roomID, From: c.peer(), Payload: payload})
			return
		}
	}
	// Signaling into a room never joined, or to a gone peer. Racy by
	// nature; log and move on, the connection is not penalized.
	log.Debug().Str("module", "gateway").Str("conn", string(c.ID)).Str("target", string(target)).Str("event", event).Msg("signal dropped")
}

// Broadcast relays a room event to every other current member.
func (g *Gateway) Broadcast(c *Conn, roomID domain.RoomID, event string, payload json.RawMessage) {
	if !IsRoomEvent(event) {
		log.Warn().Str("module", "gateway").Str("conn", string(c.ID)).Str("event", event).Msg("unknown room event dropped")
		return
	}
	if !c.inRoom(roomID) {
		log.Debug().Str("module", "gateway").Str("conn", string(c.ID)).Str("room", string(roomID)).Str("event", event).Msg("broadcast into room never joined dropped")
		return
	}
	g.broadcast(roomID, Outbound{Type: event, Room: roomID, From: c.peer(), Payload: payload}, c.ID)
}

// Disconnect runs the terminal transition. Every joined room gets one
// removal and one participant-left; eviction is the registry's.
func (g *Gateway) Disconnect(c *Conn) {
	for _, roomID := range c.close() {
		if g.rooms.Remove(roomID, c.ID) {
			g.broadcast(roomID, Outbound{Type: EvtParticipantLeft, Room: roomID, From: c.peer()}, c.ID)
		}
	}
	g.mu.Lock()
	delete(g.conns, c.ID)
	g.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	log.Info().Str("module", "gateway").Str("conn", string(c.ID)).Msg("disconnected")
}

// ConnCount is observability only.
func (g *Gateway) ConnCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

func (g *Gateway) conn(id domain.ConnID) *Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conns[id]
}

func (g *Gateway) send(s registry.Sender, out Outbound) {
	b, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("marshal outbound")
		return
	}
	// Best-effort: a closed or slow receiver is dropped, peers recover
	// via renegotiation.
	_ = s.TrySend(b)
}

func (g *Gateway) broadcast(roomID domain.RoomID, out Outbound, excluding domain.ConnID) {
	for _, rcpt := range g.rooms.Recipients(roomID, excluding) {
		g.send(rcpt.Sender, out)
	}
}
