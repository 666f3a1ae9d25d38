package authapi

import (
	"github.com/sigilauth/sigil/pkg/jwtx"
)

// ErrorResponse is the JSON error body shared by every endpoint.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g., "invalid_token")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	// Username identifies the account
	Username string `json:"username"`

	// Secret is the account password
	Secret string `json:"secret"`
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the body for POST /v1/auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	// AccessToken is the JWT presented as a Bearer credential
	AccessToken string `json:"access_token"`

	// RefreshToken is the JWT redeemed (once) for the next pair
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`
}

// StatusResponse acknowledges operations with no other payload, like logout.
type StatusResponse struct {
	Status string `json:"status"`
}

// UserInfoResponse contains information about the authenticated user.
type UserInfoResponse struct {
	UserID        string   `json:"user_id"`
	Username      string   `json:"username"`
	PreferredName string   `json:"preferred_name"`
	Scopes        []string `json:"scopes,omitempty"`
}

// HealthResponse is returned by the livez and readyz endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the JSON Web Key Set document.
type JWKSResponse = jwtx.JWKS

// RotateKeyRequest is the body for POST /v1/keys/rotate.
type RotateKeyRequest struct {
	// RetireExisting marks the currently active keys as retired
	RetireExisting bool `json:"retire_existing"`
}

// SigningKeyInfo describes one signing key without its private material.
type SigningKeyInfo struct {
	Kid       string `json:"kid"`
	Algorithm string `json:"algorithm"`
	CreatedAt string `json:"created_at,omitempty"`
	RetiredAt string `json:"retired_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RotateKeyResponse is returned by POST /v1/keys/rotate.
type RotateKeyResponse struct {
	NewKey      SigningKeyInfo   `json:"new_key"`
	RetiredKeys []SigningKeyInfo `json:"retired_keys,omitempty"`
	ActiveKeys  int              `json:"active_keys"`
}
