package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for standard session flows.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 1 * time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenKind distinguishes access tokens from refresh tokens. It travels in
// the "use" claim so a refresh token can never be replayed as an access
// token or vice versa, even though both share a signing key.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Clock supplies "now" to issuance and verification. Inject a fake in tests
// to pin expiry behaviour to a known instant.
type Clock func() time.Time

// Claims is the claim set every token this service issues carries. Changes
// must stay additive so tokens outlive deploys.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is what the token may be used for ("access" or "refresh").
	Kind TokenKind `json:"use,omitempty"`

	// SID is the session ID, stable across refresh rotations of the
	// same session.
	SID string `json:"sid,omitempty"`

	// Scopes the subject was granted, e.g. "profile:read".
	Scopes []string `json:"scopes,omitempty"`

	// Username of the authenticated user.
	Username string `json:"username,omitempty"`

	// PreferredName is the user's display name.
	PreferredName string `json:"preferred_name,omitempty"`
}

// NewAccessClaims builds minimally-correct access-token claims.
func NewAccessClaims(
	subject, sid string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	username, preferredName string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind:          KindAccess,
		SID:           sid,
		Scopes:        scopes,
		Username:      username,
		PreferredName: preferredName,
	}
}

// NewRefreshClaims builds refresh-token claims. Refresh tokens carry the
// session but none of the profile fields; they only ever come back to us.
func NewRefreshClaims(
	subject, sid string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind: KindRefresh,
		SID:  sid,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
// 20 bytes gives 160 bits of entropy, enough that revocation entries can
// key off the jti alone without collisions being a realistic concern.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateKind checks the "use" claim against the expected kind. A missing
// kind never matches.
func (c *Claims) ValidateKind(expected TokenKind) error {
	if c.Kind != expected {
		return ErrKind
	}
	return nil
}

// ValidateExpiryAt checks exp and nbf as of the given instant, stretching
// both boundaries by the leeway to absorb clock skew.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiry is ValidateExpiryAt against the wall clock with no leeway.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryAt(time.Now().UTC(), 0)
}
