package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "auth-service"

func TestRS256SignAndVerify(t *testing.T) {
	// 2048 bits keeps the test fast; production uses 4096
	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	kid := "test-key-rs256"

	signer, err := jwtx.NewSignerRS256(kid, pemKey)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.Equal(t, "RS256", signer.Alg())
	require.Equal(t, kid, signer.KID())

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-123",
		"session-rs256",
		[]string{"userinfo:read"},
		5*time.Minute,
		exampleIssuer,
		[]string{"api"},
		"rsauser",
		"RSA User",
		now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(token, ".")))

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	jwks := keyset.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.NotEmpty(t, jwks.Keys[0].N)

	verifier := jwtx.NewVerifierRS256(keyset, jwtx.VerifyOptions{
		Issuer:   exampleIssuer,
		Audience: []string{"api"},
	})

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, parsed.Subject)
	require.Equal(t, claims.SID, parsed.SID)
	require.Equal(t, jwtx.KindAccess, parsed.Kind)
	require.NotEmpty(t, parsed.ID)
}

func TestRS256VerifyFailsForGarbage(t *testing.T) {
	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	signer, err := jwtx.NewSignerRS256("k1", pemKey)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))
	verifier := jwtx.NewVerifierRS256(keyset, jwtx.VerifyOptions{Issuer: exampleIssuer})

	_, err = verifier.Verify("not-even-a-jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestRS256VerifyFailsForWrongKey(t *testing.T) {
	pemKey1, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	pemKey2, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	signer1, err := jwtx.NewSignerRS256("k1", pemKey1)
	require.NoError(t, err)
	// Same kid, different key material, so the signature check itself fails
	signer2, err := jwtx.NewSignerRS256("k1", pemKey2)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-1", "sess-1", nil,
		1*time.Minute, exampleIssuer, nil, "", "", now,
	)
	token, err := signer1.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer2))
	verifier := jwtx.NewVerifierRS256(keyset, jwtx.VerifyOptions{Issuer: exampleIssuer})

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestRS256SignerRejectsBadPEM(t *testing.T) {
	_, err := jwtx.NewSignerRS256("test", []byte("definitely not PEM"))
	require.Error(t, err)
}
