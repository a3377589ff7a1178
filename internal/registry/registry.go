// Package registry is the concurrency-safe room store. It owns the
// membership maps shared across connection tasks but never touches
// transport resources; adapters close their own connections.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingora/gateway/internal/domain"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("already joined")
)

// Sender is the transport endpoint a room fans out to. Owned by the
// adapter; the adapter must close it.
type Sender interface {
	TrySend(data []byte) error
}

// Member binds room-visible identity to its transport endpoint.
type Member struct {
	Info   domain.MemberInfo
	Sender Sender
}

// Recipient is one fan-out target of a broadcast.
type Recipient struct {
	ConnID domain.ConnID
	Sender Sender
}

// Snapshot is a read-only view of a room taken under its lock.
type Snapshot struct {
	RoomID   domain.RoomID       `json:"room"`
	Kind     domain.RoomKind     `json:"kind"`
	Capacity int                 `json:"capacity"`
	Members  []domain.MemberInfo `json:"members"`
}

// RoomInfo is the observability view: counts only, no identities.
type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Kind        domain.RoomKind `json:"kind"`
	MemberCount int             `json:"member_count"`
	Capacity    int             `json:"capacity"`
}

// room mutations are linearized by its own mutex so capacity holds
// exactly under concurrent joins. gone marks a room evicted from the
// index; a writer that raced the eviction retries against a fresh room.
type room struct {
	id        domain.RoomID
	kind      domain.RoomKind
	capacity  int
	createdAt time.Time

	mu      sync.Mutex
	members map[domain.ConnID]Member
	gone    bool
}

func (rm *room) snapshotLocked() Snapshot {
	members := make([]domain.MemberInfo, 0, len(rm.members))
	for _, m := range rm.members {
		members = append(members, m.Info)
	}
	return Snapshot{RoomID: rm.id, Kind: rm.kind, Capacity: rm.capacity, Members: members}
}

type Registry struct {
	openCapacity int
	sweepEvery   time.Duration

	mu    sync.RWMutex
	rooms map[domain.RoomID]*room
}

func New(openCapacity int, sweepEvery time.Duration) *Registry {
	return &Registry{
		openCapacity: openCapacity,
		sweepEvery:   sweepEvery,
		rooms:        make(map[domain.RoomID]*room),
	}
}

func (r *Registry) capacityFor(kind domain.RoomKind) int {
	if kind == domain.RoomScheduled {
		return domain.ScheduledRoomCapacity
	}
	return r.openCapacity
}

func (r *Registry) getOrCreate(id domain.RoomID, kind domain.RoomKind) *room {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[id]; ok {
		return rm
	}
	rm = &room{
		id:        id,
		kind:      kind,
		capacity:  r.capacityFor(kind),
		createdAt: time.Now(),
		members:   make(map[domain.ConnID]Member),
	}
	r.rooms[id] = rm
	log.Info().Str("module", "registry").Str("room", string(id)).Str("kind", string(kind)).Msg("room created")
	return rm
}

// Add admits a connection, creating the room lazily. Capacity and
// duplicates are checked under the room lock, so an Allow that raced
// the last free slot still resolves to ErrRoomFull here.
func (r *Registry) Add(id domain.RoomID, kind domain.RoomKind, connID domain.ConnID, m Member) (Snapshot, error) {
	for {
		rm := r.getOrCreate(id, kind)
		rm.mu.Lock()
		if rm.gone {
			rm.mu.Unlock()
			continue
		}
		if _, dup := rm.members[connID]; dup {
			rm.mu.Unlock()
			return Snapshot{}, ErrAlreadyJoined
		}
		if len(rm.members) >= rm.capacity {
			rm.mu.Unlock()
			return Snapshot{}, ErrRoomFull
		}
		rm.members[connID] = m
		snap := rm.snapshotLocked()
		rm.mu.Unlock()
		log.Info().Str("module", "registry").Str("room", string(id)).Str("conn", string(connID)).Int("members", len(snap.Members)).Msg("member added")
		return snap, nil
	}
}

// Remove deletes the membership if present and evicts the room the
// instant it empties. Reports whether the connection was a member.
func (r *Registry) Remove(id domain.RoomID, connID domain.ConnID) bool {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	rm.mu.Lock()
	_, present := rm.members[connID]
	delete(rm.members, connID)
	empty := present && len(rm.members) == 0
	if empty {
		rm.gone = true
	}
	rm.mu.Unlock()

	if present {
		log.Info().Str("module", "registry").Str("room", string(id)).Str("conn", string(connID)).Msg("member removed")
	}
	if empty {
		r.drop(id, rm)
	}
	return present
}

func (r *Registry) drop(id domain.RoomID, rm *room) {
	r.mu.Lock()
	if r.rooms[id] == rm {
		delete(r.rooms, id)
	}
	r.mu.Unlock()
	log.Info().Str("module", "registry").Str("room", string(id)).Msg("room evicted")
}

// Snapshot returns the current membership view, if the room exists.
func (r *Registry) Snapshot(id domain.RoomID) (Snapshot, bool) {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.gone {
		return Snapshot{}, false
	}
	return rm.snapshotLocked(), true
}

// Recipients lists the fan-out targets of a broadcast: every current
// member except excluding.
func (r *Registry) Recipients(id domain.RoomID, excluding domain.ConnID) []Recipient {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make([]Recipient, 0, len(rm.members))
	for connID, m := range rm.members {
		if connID == excluding {
			continue
		}
		out = append(out, Recipient{ConnID: connID, Sender: m.Sender})
	}
	return out
}

// MemberSender returns the transport endpoint of one member, used for
// targeted signaling.
func (r *Registry) MemberSender(id domain.RoomID, connID domain.ConnID) (Sender, bool) {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	m, ok := rm.members[connID]
	if !ok {
		return nil, false
	}
	return m.Sender, true
}

// Occupants lists the connections under which a principal is currently
// joined to the room. Feeds the stale-reconnect policy.
func (r *Registry) Occupants(id domain.RoomID, principalID domain.PrincipalID) []domain.ConnID {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	var out []domain.ConnID
	for connID, m := range rm.members {
		if m.Info.ID == principalID {
			out = append(out, connID)
		}
	}
	return out
}

// List exposes room and member counts for observability only.
func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.gone {
			out = append(out, RoomInfo{ID: rm.id, Kind: rm.kind, MemberCount: len(rm.members), Capacity: rm.capacity})
		}
		rm.mu.Unlock()
	}
	return out
}

// Run sweeps empty rooms on a fixed interval until ctx is done. The
// instant eviction in Remove already covers the normal path; the sweep
// is a defense against leaked references.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep deletes every room observed empty.
func (r *Registry) Sweep() {
	r.mu.RLock()
	candidates := make(map[domain.RoomID]*room, len(r.rooms))
	for id, rm := range r.rooms {
		candidates[id] = rm
	}
	r.mu.RUnlock()

	for id, rm := range candidates {
		rm.mu.Lock()
		empty := len(rm.members) == 0 && !rm.gone
		if empty {
			rm.gone = true
		}
		rm.mu.Unlock()
		if empty {
			r.drop(id, rm)
		}
	}
}
