package policy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lingora/gateway/internal/domain"
)

func TestHTTPOracle_GetReservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reservations/res-1":
			w.Write([]byte(`{"id":"res-1","teacher_id":"t1","student_id":"s1","status":"booked","scheduled_date":"2026-03-10","start_time":"10:00","end_time":"11:00"}`))
		case "/reservations/res-404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	oracle := NewHTTPOracle(srv.URL, srv.Client())

	res, err := oracle.GetReservation(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if res.TeacherID != "t1" || res.Status != domain.StatusBooked || res.StartTime != "10:00" {
		t.Errorf("reservation = %+v", res)
	}

	if _, err := oracle.GetReservation(context.Background(), "res-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing reservation err = %v, want ErrNotFound", err)
	}
	if _, err := oracle.GetReservation(context.Background(), "res-boom"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("server error mapped to %v, want opaque error", err)
	}
}
