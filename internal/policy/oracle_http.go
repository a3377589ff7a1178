package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lingora/gateway/internal/domain"
)

// HTTPOracle reads reservations from the booking service.
// GET {base}/reservations/{id} -> domain.Reservation JSON, 404 when absent.
type HTTPOracle struct {
	base   string
	client *http.Client
}

func NewHTTPOracle(base string, client *http.Client) *HTTPOracle {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPOracle{base: base, client: client}
}

func (o *HTTPOracle) GetReservation(ctx context.Context, id domain.RoomID) (domain.Reservation, error) {
	endpoint := fmt.Sprintf("%s/reservations/%s", o.base, url.PathEscape(string(id)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Reservation{}, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Reservation{}, ErrNotFound
	default:
		return domain.Reservation{}, fmt.Errorf("oracle responded %d", resp.StatusCode)
	}

	var res domain.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.Reservation{}, fmt.Errorf("decode reservation: %w", err)
	}
	return res, nil
}
