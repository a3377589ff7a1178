package gateway

import (
	"sync"

	"github.com/lingora/gateway/internal/domain"
	"github.com/lingora/gateway/internal/registry"
)

// Conn is the gateway-owned record of one authenticated connection.
// The principal is populated exactly once at authentication and never
// mutated; only the joined-room set changes over the connection's life.
type Conn struct {
	ID        domain.ConnID
	Principal domain.Principal

	sender registry.Sender
	cancel func()

	mu     sync.Mutex
	rooms  map[domain.RoomID]struct{}
	bound  domain.RoomID // lesson gateways: the one room this connection may ever use
	closed bool
}

func (c *Conn) info() domain.MemberInfo {
	return domain.NewMemberInfo(c.Principal)
}

func (c *Conn) peer() *Peer {
	return &Peer{ConnID: c.ID, MemberInfo: c.info()}
}

func (c *Conn) inRoom(id domain.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[id]
	return ok
}

// Rooms returns the joined set at call time.
func (c *Conn) Rooms() []domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.RoomID, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// commitRoom records the membership after the registry admitted it.
// Returns false when the connection closed while the join was in
// flight; the caller must roll the membership back.
func (c *Conn) commitRoom(id domain.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.rooms[id] = struct{}{}
	c.bound = id
	return true
}

// dropRoom forgets the membership; reports whether it was present.
func (c *Conn) dropRoom(id domain.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[id]
	delete(c.rooms, id)
	return ok
}

func (c *Conn) boundRoom() domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// close marks the terminal state and hands the joined set to the
// disconnect path exactly once; later calls get nothing.
func (c *Conn) close() []domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	out := make([]domain.RoomID, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	c.rooms = make(map[domain.RoomID]struct{})
	return out
}
