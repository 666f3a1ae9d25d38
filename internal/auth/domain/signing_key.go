package domain

import "time"

// SigningKey is a JWT signing key at rest. The PEM is AES-256-GCM encrypted
// before storage. A retired key keeps verifying tokens until ExpiresAt, it
// just stops signing new ones.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time // nil while the key is still signing
	ExpiresAt           time.Time
}

// IsActive reports whether the key may sign new tokens.
func (k *SigningKey) IsActive(now time.Time) bool {
	return k.RetiredAt == nil && now.Before(k.ExpiresAt)
}

// IsExpired reports whether the key is past its hard cutoff.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}
