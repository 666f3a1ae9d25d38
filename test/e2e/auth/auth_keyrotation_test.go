package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/pkg/authapi"
)

// TestKeyRotation rotates the signing key in persistent mode and verifies:
// 1. The new key appears in the key list and the JWKS
// 2. Tokens issued before rotation remain verifiable
// 3. The old key can be retired afterwards
func TestKeyRotation(t *testing.T) {
	baseURL := setupPersistentKeyContainer(t)
	client := authapi.NewClient(baseURL)

	pair := loginAdmin(t, client)

	keysBefore, err := client.ListKeys(t.Context(), pair.AccessToken)
	require.NoError(t, err)
	require.Len(t, keysBefore, 1)
	originalKid := keysBefore[0].Kid

	rotated, err := client.RotateKey(t.Context(), pair.AccessToken, authapi.RotateKeyRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, rotated.NewKey.Kid)
	require.NotEqual(t, originalKid, rotated.NewKey.Kid)
	require.Equal(t, 2, rotated.ActiveKeys)

	// Old tokens still verify
	info, err := client.UserInfo(t.Context(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, adminUsername, info.Username)

	// JWKS now publishes both keys
	jwks, err := client.JWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 2)

	// Retire the original key; tokens signed with it stay verifiable
	// during the grace period
	require.NoError(t, client.RetireKey(t.Context(), pair.AccessToken, originalKid))

	info, err = client.UserInfo(t.Context(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, adminUsername, info.Username)

	// New logins are signed with the fresh key
	pair2 := loginAdmin(t, client)
	_, err = client.UserInfo(t.Context(), pair2.AccessToken)
	require.NoError(t, err)
}

// TestKeyRotationRequiresAdminScope verifies scope enforcement on the
// rotation endpoints.
func TestKeyRotationRequiresAdminScope(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authapi.NewClient(baseURL)

	_, err := client.ListKeys(t.Context(), "")
	var apiErr *authapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
}
