package domain

import "time"

// RevocationEntry records a token ID (jti) that must no longer be accepted.
// Entries only need to live until the token they name would have expired
// anyway, which is what ExpiresAt captures.
type RevocationEntry struct {
	TokenID   string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// Expired reports whether the underlying token has outlived its lifetime,
// making the entry safe to purge.
func (e *RevocationEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
