package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/internal/auth/store/drivers/sqlite"
	"github.com/sigilauth/sigil/pkg/jwtx"
)

func newPersistentSetup(t *testing.T) (*sqlite.Store, *jwtx.KeyManager) {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	km, err := jwtx.NewPersistentKeyManager(t.Context(), jwtx.PersistentKeyManagerOptions{
		Store:     store.NewKeyStoreAdapter(s),
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "sigil-test",
	})
	require.NoError(t, err)

	return s, km
}

func TestPersistentRotationKeepsOldTokensVerifiable(t *testing.T) {
	s, km := newPersistentSetup(t)

	claims := jwtx.NewAccessClaims("user-1", "sid-1", nil,
		jwtx.DefaultAccessTokenTTL, "sigil-test", nil, "alice", "Alice", time.Now())
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	rotation := &KeyRotationService{Keys: s.SigningKeys(), KeyManager: km}
	resp, err := rotation.RotateKey(t.Context(), RotateKeyRequest{RetireExisting: true})
	require.NoError(t, err)
	require.Len(t, resp.RetiredKeys, 1)
	assert.NotEqual(t, resp.RetiredKeys[0].Kid, resp.NewKey.Kid)

	// Old token still verifies during the grace period.
	got, err := km.Verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Subject)

	// New tokens are signed with the new key.
	assert.Equal(t, resp.NewKey.Kid, km.GetSigner().KID())

	// Only the new key is active in the database.
	active, err := s.SigningKeys().ListActiveSigningKeys(t.Context())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, resp.NewKey.Kid, active[0].Kid)
}

func TestPersistentKeysSurviveRestart(t *testing.T) {
	s, km := newPersistentSetup(t)

	claims := jwtx.NewRefreshClaims("user-2", "sid-2",
		jwtx.DefaultRefreshTokenTTL, "sigil-test", nil, time.Now())
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	// A second manager over the same store stands in for a restart.
	km2, err := jwtx.NewPersistentKeyManager(t.Context(), jwtx.PersistentKeyManagerOptions{
		Store:     store.NewKeyStoreAdapter(s),
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "sigil-test",
	})
	require.NoError(t, err)

	got, err := km2.Verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", got.Subject)
	assert.Equal(t, km.GetSigner().KID(), km2.GetSigner().KID())
}

func TestRetireKeyPersistent(t *testing.T) {
	s, km := newPersistentSetup(t)
	rotation := &KeyRotationService{Keys: s.SigningKeys(), KeyManager: km}

	resp, err := rotation.RotateKey(t.Context(), RotateKeyRequest{})
	require.NoError(t, err)

	keys, err := rotation.ListSigningKeys(t.Context())
	require.NoError(t, err)
	require.Len(t, keys, 2)

	// Retire the original first-boot key, keeping the rotated one.
	var oldKid string
	for _, k := range keys {
		if k.Kid != resp.NewKey.Kid {
			oldKid = k.Kid
		}
	}
	require.NotEmpty(t, oldKid)

	require.NoError(t, rotation.RetireKey(t.Context(), oldKid))

	err = rotation.RetireKey(t.Context(), oldKid)
	assert.Error(t, err, "retiring twice should fail")

	active, err := s.SigningKeys().ListActiveSigningKeys(t.Context())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, resp.NewKey.Kid, active[0].Kid)
}
