package domain

import (
	"testing"
	"time"
)

func TestReservation_WindowResolution(t *testing.T) {
	res := Reservation{
		ScheduledDate: "2026-03-10",
		StartTime:     "10:00",
		EndTime:       "11:00",
	}

	start, err := res.StartAt(time.UTC)
	if err != nil {
		t.Fatalf("StartAt: %v", err)
	}
	end, err := res.EndAt(time.UTC)
	if err != nil {
		t.Fatalf("EndAt: %v", err)
	}
	if want := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestReservation_MalformedWindow(t *testing.T) {
	res := Reservation{ScheduledDate: "soon", StartTime: "10:00"}

	if _, err := res.StartAt(time.UTC); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestReservation_IsParty(t *testing.T) {
	res := Reservation{TeacherID: "t1", StudentID: "s1"}

	if !res.IsParty("t1") || !res.IsParty("s1") {
		t.Error("parties not recognized")
	}
	if res.IsParty("x1") {
		t.Error("stranger recognized as party")
	}
}

func TestReservationStatus_Joinable(t *testing.T) {
	for status, want := range map[ReservationStatus]bool{
		StatusBooked:    true,
		StatusCompleted: true,
		StatusCancelled: false,
		StatusPending:   false,
	} {
		if got := status.Joinable(); got != want {
			t.Errorf("%s.Joinable() = %v, want %v", status, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"student", "teacher", "admin"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q): %v", s, err)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("ParseRole accepted an unknown role")
	}
}
