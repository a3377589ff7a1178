package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPAuthority queries the platform auth service for token revocation.
// GET {base}/tokens/{jti}/revoked -> {"revoked": bool}
type HTTPAuthority struct {
	base   string
	client *http.Client
}

func NewHTTPAuthority(base string, client *http.Client) *HTTPAuthority {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthority{base: base, client: client}
}

func (a *HTTPAuthority) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/tokens/%s/revoked", a.base, url.PathEscape(tokenID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("authority responded %d", resp.StatusCode)
	}
	var body struct {
		Revoked bool `json:"revoked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode authority response: %w", err)
	}
	return body.Revoked, nil
}
