package domain

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusBooked    ReservationStatus = "booked"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Joinable reports whether the reservation status still admits parties
// into the lesson room. Completed stays joinable so a lesson marked done
// early does not kick out a late retrospective chat.
func (s ReservationStatus) Joinable() bool {
	return s == StatusBooked || s == StatusCompleted
}

// Reservation is the read-only booking record served by the reservation
// oracle. Date and times arrive as the oracle stores them; the gateway
// combines them against server wall-clock only.
type Reservation struct {
	ID            RoomID            `json:"id"`
	TeacherID     PrincipalID       `json:"teacher_id"`
	StudentID     PrincipalID       `json:"student_id"`
	Status        ReservationStatus `json:"status"`
	ScheduledDate string            `json:"scheduled_date"` // 2006-01-02
	StartTime     string            `json:"start_time"`     // 15:04
	EndTime       string            `json:"end_time"`       // 15:04
}

// IsParty reports whether id is one of the reservation's two parties.
func (r Reservation) IsParty(id PrincipalID) bool {
	return id == r.TeacherID || id == r.StudentID
}

// StartAt resolves scheduledDate+startTime in the server location.
func (r Reservation) StartAt(loc *time.Location) (time.Time, error) {
	return atClock(r.ScheduledDate, r.StartTime, loc)
}

// EndAt resolves scheduledDate+endTime in the server location.
func (r Reservation) EndAt(loc *time.Location) (time.Time, error) {
	return atClock(r.ScheduledDate, r.EndTime, loc)
}

func atClock(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed reservation window: %w", err)
	}
	return t, nil
}
