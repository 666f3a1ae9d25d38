package service

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/internal/auth/domain"
	"github.com/sigilauth/sigil/internal/auth/store/drivers/sqlite"
	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/idx"
	"github.com/sigilauth/sigil/pkg/jwtx"
)

func TestMain(m *testing.M) {
	// Hashing needs a pepper file; use a throwaway one.
	pepperPath := filepath.Join(os.TempDir(), "sigil-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)
	os.Remove(pepperPath)

	code := m.Run()

	os.Remove(pepperPath)
	os.Exit(code)
}

// testClock is an adjustable time source shared by the key manager's
// verifier and the session service's issuer.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newSessionService(t *testing.T) (*SessionService, *sqlite.Store, *testClock) {
	return newSessionServiceLeeway(t, 0)
}

func newSessionServiceLeeway(t *testing.T, leeway time.Duration) (*SessionService, *sqlite.Store, *testClock) {
	t.Helper()

	clk := &testClock{t: time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)}

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "sigil-test",
		Leeway:    leeway,
		Clock:     clk.Now,
	})
	require.NoError(t, err)

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	svc := &SessionService{
		KeyManager:  km,
		Users:       s.Users(),
		Revocations: s.Revocations(),
		Issuer:      "sigil-test",
		AccessTTL:   jwtx.DefaultAccessTokenTTL,
		RefreshTTL:  jwtx.DefaultRefreshTokenTTL,
		Leeway:      leeway,
		Clock:       clk.Now,
	}
	return svc, s, clk
}

func createUser(t *testing.T, s *sqlite.Store, username, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:            idx.New().String(),
		Username:      username,
		PreferredName: "Test User",
		PasswordHash:  hash,
		Scopes:        []string{"profile:read"},
	}
	require.NoError(t, s.Users().CreateUser(t.Context(), u))
	return u
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	svc, s, _ := newSessionService(t)
	u := createUser(t, s, "alice", "correct horse")

	pair, err := svc.Login(t.Context(), "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, time.Hour, pair.ExpiresIn)

	access, err := svc.Authenticate(t.Context(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, access.Subject)
	assert.Equal(t, "alice", access.Username)
	assert.Equal(t, []string{"profile:read"}, access.Scopes)
	assert.NotEmpty(t, access.ID)
	assert.NotEmpty(t, access.SID)

	refresh, err := svc.KeyManager.Verifier.Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, jwtx.KindRefresh, refresh.Kind)
	assert.Equal(t, access.SID, refresh.SID)
	assert.NotEqual(t, access.ID, refresh.ID)

	// Default lifetimes: one hour access, seven day refresh.
	assert.Equal(t, time.Hour, access.ExpiresAt.Sub(access.IssuedAt.Time))
	assert.Equal(t, 7*24*time.Hour, refresh.ExpiresAt.Sub(refresh.IssuedAt.Time))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "bob", "right password")

	_, err := svc.Login(t.Context(), "bob", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown usernames give the same answer as wrong passwords.
	_, err = svc.Login(t.Context(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsTamperedTokens(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "carol", "pw")

	pair, err := svc.Login(t.Context(), "carol", "pw")
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)

	// Tampering with any single segment must read as a forgery, not as
	// malformed input or some other failure.
	t.Run("header", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString(
			[]byte(`{"alg":"EdDSA","typ":"JWT","kid":"sigil-forged"}`))
		forged := header + "." + parts[1] + "." + parts[2]

		_, err := svc.Authenticate(t.Context(), forged)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("payload", func(t *testing.T) {
		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		mutated := strings.Replace(string(payload), `"carol"`, `"mallory"`, 1)
		require.NotEqual(t, string(payload), mutated)

		forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(mutated)) + "." + parts[2]
		_, err = svc.Authenticate(t.Context(), forged)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("signature", func(t *testing.T) {
		sig, err := base64.RawURLEncoding.DecodeString(parts[2])
		require.NoError(t, err)
		sig[0] ^= 0x01

		forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)
		_, err = svc.Authenticate(t.Context(), forged)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	_, err = svc.Authenticate(t.Context(), "not a token at all")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	svc, s, clk := newSessionService(t)
	createUser(t, s, "dave", "pw")

	pair, err := svc.Login(t.Context(), "dave", "pw")
	require.NoError(t, err)

	// Two hours later the one-hour access token is dead.
	clk.Advance(2 * time.Hour)

	_, err = svc.Authenticate(t.Context(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The refresh token still has days to live.
	_, err = svc.Refresh(t.Context(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestKindIsolation(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "erin", "pw")

	pair, err := svc.Login(t.Context(), "erin", "pw")
	require.NoError(t, err)

	_, err = svc.Authenticate(t.Context(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = svc.Refresh(t.Context(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongKind)

	err = svc.Logout(t.Context(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "frank", "pw")

	pair1, err := svc.Login(t.Context(), "frank", "pw")
	require.NoError(t, err)

	pair2, err := svc.Refresh(t.Context(), pair1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair1.RefreshToken, pair2.RefreshToken)

	// Replaying the consumed token fails, while its successor works.
	_, err = svc.Refresh(t.Context(), pair1.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	pair3, err := svc.Refresh(t.Context(), pair2.RefreshToken)
	require.NoError(t, err)

	// The session id survives every rotation.
	c1, err := svc.KeyManager.Verifier.Verify(pair1.AccessToken)
	require.NoError(t, err)
	c3, err := svc.KeyManager.Verifier.Verify(pair3.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, c1.SID, c3.SID)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "mona", "pw")

	pair, err := svc.Login(t.Context(), "mona", "pw")
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(t.Context(), pair.RefreshToken)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// The revocation write is the tie-break: whichever call lands it
	// first gets the new pair, the other reads as a revoked token.
	var won, lost int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenRevoked)
		lost++
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
}

func TestRefreshPicksUpUserChanges(t *testing.T) {
	svc, s, _ := newSessionService(t)
	u := createUser(t, s, "grace", "pw")

	pair, err := svc.Login(t.Context(), "grace", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Users().UpdatePreferredName(t.Context(), u.ID, "Grace H"))

	pair2, err := svc.Refresh(t.Context(), pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.Authenticate(t.Context(), pair2.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Grace H", claims.PreferredName)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "heidi", "pw")

	pair, err := svc.Login(t.Context(), "heidi", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(t.Context(), pair.RefreshToken))

	_, err = svc.Refresh(t.Context(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Logging out twice is fine.
	require.NoError(t, svc.Logout(t.Context(), pair.RefreshToken))
}

func TestLogoutOfExpiredTokenIsNoop(t *testing.T) {
	svc, s, clk := newSessionService(t)
	createUser(t, s, "ivan", "pw")

	pair, err := svc.Login(t.Context(), "ivan", "pw")
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)

	require.NoError(t, svc.Logout(t.Context(), pair.RefreshToken))

	// Nothing was written: the token is already unusable.
	found, err := s.Revocations().Contains(t.Context(), claimsID(t, svc, pair.RefreshToken))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLogoutWithinLeewayStillRevokes(t *testing.T) {
	svc, s, clk := newSessionServiceLeeway(t, 30*time.Second)
	createUser(t, s, "nina", "pw")

	pair, err := svc.Login(t.Context(), "nina", "pw")
	require.NoError(t, err)

	// Ten seconds past expiry the verifier still accepts the refresh
	// token thanks to the leeway, so logout must write the revocation.
	clk.Advance(jwtx.DefaultRefreshTokenTTL + 10*time.Second)

	require.NoError(t, svc.Logout(t.Context(), pair.RefreshToken))

	found, err := s.Revocations().Contains(t.Context(), claimsID(t, svc, pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, found)

	_, err = svc.Refresh(t.Context(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func claimsID(t *testing.T, svc *SessionService, raw string) string {
	t.Helper()
	c, err := svc.KeyManager.Verifier.VerifyIgnoreExpiry(raw)
	require.NoError(t, err)
	return c.ID
}

func TestAccessTokenRevocationPolicy(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "judy", "pw")

	pair, err := svc.Login(t.Context(), "judy", "pw")
	require.NoError(t, err)

	claims, err := svc.Authenticate(t.Context(), pair.AccessToken)
	require.NoError(t, err)

	_, err = s.Revocations().Add(t.Context(), domain.RevocationEntry{
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: time.Now(),
	})
	require.NoError(t, err)

	// Off by default: the hot path never consults the store.
	_, err = svc.Authenticate(t.Context(), pair.AccessToken)
	require.NoError(t, err)

	svc.CheckAccessRevocation = true
	_, err = svc.Authenticate(t.Context(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshFailsClosedWhenStoreIsDown(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "karl", "pw")

	pair, err := svc.Login(t.Context(), "karl", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Close())

	_, err = svc.Refresh(t.Context(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = svc.Logout(t.Context(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRefreshAfterKeyRotation(t *testing.T) {
	svc, s, _ := newSessionService(t)
	createUser(t, s, "lena", "pw")

	pair, err := svc.Login(t.Context(), "lena", "pw")
	require.NoError(t, err)

	rotation := &KeyRotationService{KeyManager: svc.KeyManager}
	resp, err := rotation.RotateKey(t.Context(), RotateKeyRequest{RetireExisting: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.NewKey.Kid)

	// Tokens signed by the retired key keep working until expiry.
	_, err = svc.Authenticate(t.Context(), pair.AccessToken)
	require.NoError(t, err)

	// And a refresh moves the session onto the new key.
	pair2, err := svc.Refresh(t.Context(), pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Authenticate(t.Context(), pair2.AccessToken)
	require.NoError(t, err)
}
