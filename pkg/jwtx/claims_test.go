package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sigilauth/sigil/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "auth-service",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("auth-service"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		err := c.ValidateIssuer("billing-service")
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: []string{"api", "media"},
		},
	}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"api"}))
	})

	t.Run("multiple match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "media"}))
	})

	t.Run("no match", func(t *testing.T) {
		err := c.ValidateAudience([]string{"admin"})
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateKind(t *testing.T) {
	t.Run("access matches access", func(t *testing.T) {
		c := &jwtx.Claims{Kind: jwtx.KindAccess}
		require.NoError(t, c.ValidateKind(jwtx.KindAccess))
	})

	t.Run("refresh rejected as access", func(t *testing.T) {
		c := &jwtx.Claims{Kind: jwtx.KindRefresh}
		require.ErrorIs(t, c.ValidateKind(jwtx.KindAccess), jwtx.ErrKind)
	})

	t.Run("access rejected as refresh", func(t *testing.T) {
		c := &jwtx.Claims{Kind: jwtx.KindAccess}
		require.ErrorIs(t, c.ValidateKind(jwtx.KindRefresh), jwtx.ErrKind)
	})

	t.Run("missing kind never matches", func(t *testing.T) {
		c := &jwtx.Claims{}
		require.ErrorIs(t, c.ValidateKind(jwtx.KindAccess), jwtx.ErrKind)
	})
}

func TestValidateExpiryAt(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(1 * time.Minute)),
			},
		}
		require.NoError(t, claims.ValidateExpiryAt(now, 0))
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryAt(now, 0), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				NotBefore: jwt.NewNumericDate(now.Add(1 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryAt(now, 0), jwtx.ErrNotYetValid)
	})

	t.Run("no exp or nbf", func(t *testing.T) {
		claims := &jwtx.Claims{}
		require.NoError(t, claims.ValidateExpiryAt(now, 0))
	})

	t.Run("valid within leeway", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
			},
		}
		require.NoError(t, claims.ValidateExpiryAt(now, 30*time.Second))
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryAt(now, 30*time.Second), jwtx.ErrExpired)
	})
}

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewAccessClaims(
		"user-1", "sess-1",
		[]string{"userinfo:read"},
		time.Hour,
		"auth-service",
		[]string{"api"},
		"alice", "Alice",
		now,
	)

	require.Equal(t, jwtx.KindAccess, c.Kind)
	require.Equal(t, "sess-1", c.SID)
	require.NotEmpty(t, c.ID)
	require.Equal(t, now.Add(time.Hour).Unix(), c.ExpiresAt.Unix())
}

func TestNewRefreshClaims(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewRefreshClaims("user-1", "sess-1", 7*24*time.Hour, "auth-service", nil, now)

	require.Equal(t, jwtx.KindRefresh, c.Kind)
	require.Equal(t, "sess-1", c.SID)
	require.Empty(t, c.Username)
	require.Empty(t, c.Scopes)
	require.Equal(t, now.Add(7*24*time.Hour).Unix(), c.ExpiresAt.Unix())
}

func TestNewJTIIsUniqueAndOpaque(t *testing.T) {
	seen := make(map[string]struct{})
	for range 64 {
		jti := jwtx.NewJTI()
		require.GreaterOrEqual(t, len(jti), 27) // 20 bytes base64url, no padding
		_, dup := seen[jti]
		require.False(t, dup)
		seen[jti] = struct{}{}
	}
}
