// Package token issues and validates the signed bearer tokens that prove an
// identity on subsequent requests.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "nexus/pkg/domain-errors"
)

// DefaultTTL is how long an issued token stays valid. Rotating the signing
// key invalidates every outstanding token; there is no revocation list.
const DefaultTTL = 7 * 24 * time.Hour

const issuer = "nexus"

// Claims is the typed payload embedded in every token. Kind is captured at
// issuance time; it is a snapshot, not re-checked against the live record.
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Service signs and verifies identity tokens with a process-wide HS256 key.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, making expiry deterministic in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// New creates a token service from the configured signing key.
func New(signingKey string, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token naming the identity and its kind, expiring after the
// configured TTL.
func (s *Service) Issue(username, kind string) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return t.SignedString(s.signingKey)
}

// Validate verifies the signature and expiry and returns the typed claims.
// Signature mismatch, malformed structure, missing claims, and expiry all
// surface as an unauthenticated domain error, never a panic.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "unauthenticated", "token has expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "unauthenticated", "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unauthenticated", "invalid token")
	}
	if claims.Subject == "" || claims.Kind == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unauthenticated", "token missing required claims")
	}
	return claims, nil
}
