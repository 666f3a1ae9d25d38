package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sigilauth/sigil/internal/auth/domain"
	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/jwtx"
)

// KeyRotationService handles JWT signing key rotation for both ephemeral and
// persistent modes. It allows manual rotation and retirement of signing keys
// at runtime.
//
// In ephemeral mode (Keys == nil) keys live in the KeyManager only: retired
// keys remain in the KeySet for verification until restart. In persistent
// mode (Keys != nil) keys are encrypted and stored in the database, retired
// keys keep verifying during the grace period, and keys survive restarts.
type KeyRotationService struct {
	Keys        store.SigningKeys // nil for ephemeral mode
	KeyManager  *jwtx.KeyManager
	RSABits     int
	GracePeriod time.Duration
}

// RotateKeyRequest represents a request to rotate signing keys.
type RotateKeyRequest struct {
	// RetireExisting marks the currently active keys as retired. If
	// false the new key is added alongside them.
	RetireExisting bool
}

// RotateKeyResponse represents the result of a key rotation operation.
type RotateKeyResponse struct {
	NewKey      domain.SigningKey   `json:"new_key"`
	RetiredKeys []domain.SigningKey `json:"retired_keys,omitempty"`
	ActiveKeys  int                 `json:"active_keys"`
}

// RotateKey generates a new signing key, installs it as the signing key for
// all tokens issued from now on, and optionally retires the keys it
// replaces. Tokens signed by retired keys keep verifying until they expire.
func (s *KeyRotationService) RotateKey(ctx context.Context, req RotateKeyRequest) (*RotateKeyResponse, error) {
	if s.KeyManager == nil {
		return nil, fmt.Errorf("KeyManager is required")
	}

	now := time.Now()
	gracePeriod := s.GracePeriod
	if gracePeriod <= 0 {
		gracePeriod = 30 * 24 * time.Hour
	}

	var retiredKeys []domain.SigningKey
	var newKey domain.SigningKey

	if s.Keys != nil {
		record, signer, err := jwtx.GenerateSigningKeyRecord(s.KeyManager.Algorithm(), s.RSABits, gracePeriod, now)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}

		newKey = domain.SigningKey{
			ID:                  record.ID,
			Kid:                 record.Kid,
			Algorithm:           record.Algorithm,
			PrivateKeyEncrypted: record.PrivateKeyEncrypted,
			CreatedAt:           record.CreatedAt,
			ExpiresAt:           record.ExpiresAt,
		}
		if err := s.Keys.CreateSigningKey(ctx, newKey); err != nil {
			return nil, fmt.Errorf("failed to persist signing key: %w", err)
		}

		if req.RetireExisting {
			activeKeys, err := s.Keys.ListActiveSigningKeys(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list active keys: %w", err)
			}

			for _, key := range activeKeys {
				if key.Kid == newKey.Kid {
					continue
				}
				if err := s.Keys.RetireSigningKey(ctx, key.Kid); err != nil {
					return nil, fmt.Errorf("failed to retire key %s: %w", key.Kid, err)
				}
				// Best effort: the key might not be loaded in this
				// KeyManager instance.
				_ = s.KeyManager.RetireSignerByKid(key.Kid)

				key.RetiredAt = &now
				retiredKeys = append(retiredKeys, key)
			}
		}

		if err := s.KeyManager.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("failed to install signer: %w", err)
		}
	} else {
		previous := s.KeyManager.GetSigners()

		signer, err := s.KeyManager.Rotate(s.RSABits)
		if err != nil {
			return nil, fmt.Errorf("failed to rotate key: %w", err)
		}

		newKey = domain.SigningKey{
			Kid:       signer.KID(),
			Algorithm: s.KeyManager.Algorithm(),
			CreatedAt: now,
		}

		if req.RetireExisting {
			for _, prev := range previous {
				if err := s.KeyManager.RetireSignerByKid(prev.KID()); err != nil {
					return nil, fmt.Errorf("failed to retire key %s: %w", prev.KID(), err)
				}
				retiredKeys = append(retiredKeys, domain.SigningKey{
					Kid:       prev.KID(),
					Algorithm: s.KeyManager.Algorithm(),
					RetiredAt: &now,
				})
			}
		}
	}

	return &RotateKeyResponse{
		NewKey:      newKey,
		RetiredKeys: retiredKeys,
		ActiveKeys:  s.KeyManager.NumSigners(),
	}, nil
}

// ListSigningKeys returns all signing keys with their status. In persistent
// mode the database is authoritative; in ephemeral mode the KeyManager is.
func (s *KeyRotationService) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	if s.Keys != nil {
		return s.Keys.ListAllSigningKeys(ctx)
	}

	if s.KeyManager == nil {
		return nil, fmt.Errorf("KeyManager is required")
	}

	signers := s.KeyManager.GetSigners()
	keys := make([]domain.SigningKey, len(signers))
	for i, signer := range signers {
		keys[i] = domain.SigningKey{
			Kid:       signer.KID(),
			Algorithm: s.KeyManager.Algorithm(),
		}
	}
	return keys, nil
}

// RetireKey marks a specific key as retired without generating a new one.
// The key stays valid for verification during the grace period.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	if s.KeyManager == nil {
		return fmt.Errorf("KeyManager is required")
	}

	if s.Keys != nil {
		key, err := s.Keys.GetSigningKeyByKid(ctx, kid)
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}
		if key.RetiredAt != nil {
			return fmt.Errorf("key %s is already retired", kid)
		}

		if err := s.Keys.RetireSigningKey(ctx, kid); err != nil {
			return fmt.Errorf("failed to retire key: %w", err)
		}
		_ = s.KeyManager.RetireSignerByKid(kid)
		return nil
	}

	return s.KeyManager.RetireSignerByKid(kid)
}
