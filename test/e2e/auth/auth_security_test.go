package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/pkg/authapi"
)

// TestTamperedTokensAreRejected verifies that modified tokens fail with
// the same generic error regardless of how they were broken.
func TestTamperedTokensAreRejected(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authapi.NewClient(baseURL)

	pair := loginAdmin(t, client)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)

	// Flip a bit in the signature
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0x01
	tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	_, err = client.UserInfo(t.Context(), tampered)
	var apiErr *authapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
	require.Equal(t, authapi.ErrorCodeInvalidToken, apiErr.Code)

	// Garbage token fails identically - no failure-mode oracle
	_, err = client.UserInfo(t.Context(), "not-a-jwt")
	var garbageErr *authapi.APIError
	require.ErrorAs(t, err, &garbageErr)
	require.Equal(t, apiErr.Code, garbageErr.Code)
	require.Equal(t, apiErr.StatusCode, garbageErr.StatusCode)
}

// TestRefreshTokenRejectedOnLogin verifies refresh endpoints reject
// access tokens and vice versa.
func TestRefreshTokenRejectedOnLogin(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authapi.NewClient(baseURL)

	pair := loginAdmin(t, client)

	// Access token used where a refresh token is required
	_, err := client.Refresh(t.Context(), pair.AccessToken)
	var apiErr *authapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, authapi.ErrorCodeInvalidToken, apiErr.Code)
}
