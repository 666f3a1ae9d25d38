package store

import (
	"context"
	"errors"
	"time"

	"github.com/sigilauth/sigil/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, redis
// for the revocation list) implement this. It exposes sub-repositories to
// keep concerns tidy and testable.
type Store interface {
	Users() Users
	Revocations() Revocations
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePreferredName mutates the preferred_name and bumps updated_at.
	UpdatePreferredName(ctx context.Context, userID string, preferredName string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser removes the user row.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

// Revocations is the revocation list for token IDs (jti claims). A revoked
// token ID stays listed until the token it names would have expired anyway.
type Revocations interface {
	// Add records a revocation. It reports true when this call created the
	// entry and false when the token ID was already listed, so refresh
	// rotation can detect concurrent reuse of the same token. Adding an
	// already-listed ID is not an error.
	Add(ctx context.Context, entry domain.RevocationEntry) (bool, error)

	// Contains reports whether the token ID is currently revoked.
	Contains(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpired purges entries whose tokens expired before the cutoff
	// (housekeeping). The cutoff must account for verifier leeway.
	DeleteExpired(ctx context.Context, before time.Time) error
}

// SigningKeys persists JWT signing keys for the persistent storage mode.
// Private key material is encrypted before it reaches this layer.
type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListActiveSigningKeys returns keys eligible for signing, newest first.
	ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListAllSigningKeys includes retired and expired keys, newest first.
	// Verification needs these until the grace period runs out.
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// RetireSigningKey stamps retired_at. A retired key verifies but no
	// longer signs.
	RetireSigningKey(ctx context.Context, kid string) error

	// DeleteExpiredSigningKeys drops keys past expires_at (housekeeping).
	DeleteExpiredSigningKeys(ctx context.Context) error
}
