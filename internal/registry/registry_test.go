package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lingora/gateway/internal/domain"
)

type nopSender struct{}

func (nopSender) TrySend([]byte) error { return nil }

func member(id string) Member {
	return Member{
		Info:   domain.MemberInfo{ID: domain.PrincipalID(id), Name: id, Role: domain.RoleStudent},
		Sender: nopSender{},
	}
}

func TestAdd_CreatesRoomLazilyAndReturnsSnapshot(t *testing.T) {
	r := New(5, time.Minute)

	snap, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if snap.RoomID != "lobby-1" || snap.Capacity != 5 || len(snap.Members) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if got := len(r.List()); got != 1 {
		t.Errorf("List() = %d rooms, want 1", got)
	}
}

func TestAdd_DuplicateConnRejected(t *testing.T) {
	r := New(5, time.Minute)

	if _, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1")); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1")); err != ErrAlreadyJoined {
		t.Fatalf("second Add err = %v, want ErrAlreadyJoined", err)
	}
}

func TestAdd_ScheduledRoomCapacityIsTwo(t *testing.T) {
	r := New(5, time.Minute)

	for i := 0; i < 2; i++ {
		id := domain.ConnID(fmt.Sprintf("c%d", i))
		if _, err := r.Add("res-1", domain.RoomScheduled, id, member(string(id))); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}
	if _, err := r.Add("res-1", domain.RoomScheduled, "c9", member("u9")); err != ErrRoomFull {
		t.Fatalf("third Add err = %v, want ErrRoomFull", err)
	}
}

func TestAdd_CapacityHoldsUnderConcurrentJoins(t *testing.T) {
	const capacity = 5
	const attempts = 40
	r := New(capacity, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan domain.ConnID, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.ConnID(fmt.Sprintf("c%d", i))
			if _, err := r.Add("lobby-1", domain.RoomOpen, id, member(string(id))); err == nil {
				admitted <- id
			}
		}(i)
	}
	wg.Wait()
	close(admitted)

	got := 0
	for range admitted {
		got++
	}
	if got != capacity {
		t.Fatalf("admitted %d joins, want exactly %d", got, capacity)
	}
	snap, ok := r.Snapshot("lobby-1")
	if !ok || len(snap.Members) != capacity {
		t.Errorf("snapshot members = %d, want %d", len(snap.Members), capacity)
	}
}

func TestRemove_EvictsRoomTheInstantItEmpties(t *testing.T) {
	r := New(5, time.Minute)
	if _, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1")); err != nil {
		t.Fatal(err)
	}

	if !r.Remove("lobby-1", "c1") {
		t.Fatal("Remove reported member absent")
	}
	if _, ok := r.Snapshot("lobby-1"); ok {
		t.Error("room still present after last member left")
	}
	if got := len(r.List()); got != 0 {
		t.Errorf("List() = %d rooms, want 0", got)
	}
}

func TestRemove_NonMemberIsNoOp(t *testing.T) {
	r := New(5, time.Minute)
	if _, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1")); err != nil {
		t.Fatal(err)
	}

	if r.Remove("lobby-1", "ghost") {
		t.Error("Remove reported a never-joined conn as member")
	}
	if r.Remove("no-such-room", "c1") {
		t.Error("Remove on unknown room reported a member")
	}
	if _, ok := r.Snapshot("lobby-1"); !ok {
		t.Error("occupied room evicted by no-op removal")
	}
}

func TestAdd_AfterEvictionRecreatesRoom(t *testing.T) {
	r := New(5, time.Minute)
	if _, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1")); err != nil {
		t.Fatal(err)
	}
	r.Remove("lobby-1", "c1")

	snap, err := r.Add("lobby-1", domain.RoomOpen, "c2", member("u2"))
	if err != nil {
		t.Fatalf("Add after eviction: %v", err)
	}
	if len(snap.Members) != 1 {
		t.Errorf("recreated room has %d members, want 1", len(snap.Members))
	}
}

func TestRecipients_ExcludesTheSender(t *testing.T) {
	r := New(5, time.Minute)
	for _, id := range []domain.ConnID{"c1", "c2", "c3"} {
		if _, err := r.Add("lobby-1", domain.RoomOpen, id, member(string(id))); err != nil {
			t.Fatal(err)
		}
	}

	rcpts := r.Recipients("lobby-1", "c2")
	if len(rcpts) != 2 {
		t.Fatalf("got %d recipients, want 2", len(rcpts))
	}
	for _, rcpt := range rcpts {
		if rcpt.ConnID == "c2" {
			t.Error("sender included in its own broadcast")
		}
	}
}

func TestOccupants_FindsConnectionsOfPrincipal(t *testing.T) {
	r := New(5, time.Minute)
	if _, err := r.Add("res-1", domain.RoomScheduled, "c1", member("student-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add("res-1", domain.RoomScheduled, "c2", member("teacher-1")); err != nil {
		t.Fatal(err)
	}

	occ := r.Occupants("res-1", "student-1")
	if len(occ) != 1 || occ[0] != "c1" {
		t.Errorf("Occupants = %v, want [c1]", occ)
	}
	if occ := r.Occupants("res-1", "nobody"); len(occ) != 0 {
		t.Errorf("Occupants for absent principal = %v", occ)
	}
}

func TestSweep_KeepsOccupiedRooms(t *testing.T) {
	r := New(5, time.Minute)
	if _, err := r.Add("lobby-1", domain.RoomOpen, "c1", member("u1")); err != nil {
		t.Fatal(err)
	}

	r.Sweep()

	if _, ok := r.Snapshot("lobby-1"); !ok {
		t.Error("sweep evicted an occupied room")
	}
}

func TestSweep_DropsLeakedEmptyRooms(t *testing.T) {
	r := New(5, time.Minute)
	// A room the index holds with nobody inside, as a leaked reference
	// would leave it.
	r.getOrCreate("stale-1", domain.RoomOpen)

	r.Sweep()

	if got := len(r.List()); got != 0 {
		t.Errorf("List() = %d rooms after sweep, want 0", got)
	}
}

func TestMutationsOnDifferentRoomsAreIndependent(t *testing.T) {
	r := New(1, time.Minute)
	if _, err := r.Add("a", domain.RoomOpen, "c1", member("u1")); err != nil {
		t.Fatal(err)
	}

	// Room a is full; room b admits regardless.
	if _, err := r.Add("b", domain.RoomOpen, "c2", member("u2")); err != nil {
		t.Fatalf("Add to independent room: %v", err)
	}
	if _, err := r.Add("a", domain.RoomOpen, "c3", member("u3")); err != ErrRoomFull {
		t.Fatalf("full room err = %v, want ErrRoomFull", err)
	}
}
