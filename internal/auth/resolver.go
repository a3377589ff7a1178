// Package auth resolves bearer tokens to principals. Verification runs
// once per connection, before any room operation; a failure here closes
// the connection at the transport level.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/lingora/gateway/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
)

// TokenAuthority tracks revocation of issued token ids.
type TokenAuthority interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

type Resolver struct {
	authority TokenAuthority
	secret    []byte
	issuer    string
	timeout   time.Duration
}

func NewResolver(authority TokenAuthority, secret, issuer string, timeout time.Duration) *Resolver {
	return &Resolver{
		authority: authority,
		secret:    []byte(secret),
		issuer:    issuer,
		timeout:   timeout,
	}
}

// Authenticate verifies signature, expiry, issuer and required claims,
// then asks the authority whether the token id was revoked. The
// revocation lookup is bounded by the resolver timeout and fails closed.
func (r *Resolver) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	}, jwt.WithIssuer(r.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		log.Debug().Err(err).Str("module", "auth").Msg("token rejected")
		return domain.Principal{}, ErrInvalidToken
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" || claims.Name == "" || claims.ID == "" {
		return domain.Principal{}, ErrInvalidToken
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	revoked, err := r.authority.IsRevoked(lookupCtx, claims.ID)
	if err != nil {
		// Fail closed: an unreachable authority must not admit anyone.
		log.Warn().Err(err).Str("module", "auth").Str("jti", claims.ID).Msg("revocation lookup failed")
		return domain.Principal{}, ErrInvalidToken
	}
	if revoked {
		return domain.Principal{}, ErrRevoked
	}

	return domain.NewPrincipal(claims.Subject, claims.Name, role)
}
