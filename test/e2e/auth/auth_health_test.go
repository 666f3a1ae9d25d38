package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/pkg/authapi"
)

// TestHealthEndpoints verifies liveness and readiness reporting.
func TestHealthEndpoints(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authapi.NewClient(baseURL)

	live, err := client.Livez(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Readyz(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
}
