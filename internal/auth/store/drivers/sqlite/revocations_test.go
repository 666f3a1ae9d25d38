package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/internal/auth/domain"
)

func TestRevocationsAddAndContains(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	now := time.Now().UTC()

	entry := domain.RevocationEntry{
		TokenID:   "jti-1",
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: now,
	}

	created, err := s.Revocations().Add(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	found, err := s.Revocations().Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Revocations().Contains(ctx, "jti-other")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRevocationsAddIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	now := time.Now().UTC()

	entry := domain.RevocationEntry{
		TokenID:   "jti-dup",
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: now,
	}

	created, err := s.Revocations().Add(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	// A second add must report that the entry already existed so the
	// caller can treat the replay as a reuse signal.
	created, err = s.Revocations().Add(ctx, entry)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := s.Revocations().Contains(ctx, "jti-dup")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRevocationsDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	now := time.Now().UTC()

	stale := domain.RevocationEntry{
		TokenID:   "jti-stale",
		ExpiresAt: now.Add(-time.Hour),
		RevokedAt: now.Add(-2 * time.Hour),
	}
	// Expired, but within a 30s verifier leeway: a token this fresh could
	// still be accepted, so the entry must survive a leeway-aware sweep.
	skewed := domain.RevocationEntry{
		TokenID:   "jti-skewed",
		ExpiresAt: now.Add(-10 * time.Second),
		RevokedAt: now.Add(-time.Minute),
	}
	live := domain.RevocationEntry{
		TokenID:   "jti-live",
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: now,
	}

	for _, entry := range []domain.RevocationEntry{stale, skewed, live} {
		_, err := s.Revocations().Add(ctx, entry)
		require.NoError(t, err)
	}

	require.NoError(t, s.Revocations().DeleteExpired(ctx, now.Add(-30*time.Second)))

	found, err := s.Revocations().Contains(ctx, "jti-stale")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.Revocations().Contains(ctx, "jti-skewed")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Revocations().Contains(ctx, "jti-live")
	require.NoError(t, err)
	assert.True(t, found)
}
