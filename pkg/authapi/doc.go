/*
Package authapi provides a typed client for the Sigil authentication service
and the wire types shared by the service's HTTP handlers.

# Usage

Create a Client to talk to a running service:

	client := authapi.NewClient("https://auth.example.com")

	pair, err := client.Login(ctx, "alice", "password")
	if err != nil {
		// Errors are *authapi.APIError values with the server's error code.
	}

	info, err := client.UserInfo(ctx, pair.AccessToken)

Refresh tokens are single use. Redeeming one revokes it and returns a fresh
pair:

	pair, err = client.Refresh(ctx, pair.RefreshToken)

End a session by surrendering the refresh token:

	err = client.Logout(ctx, pair.RefreshToken)

Resource services that verify access tokens themselves can fetch the key set
from JWKS and skip the round-trip to the auth service entirely.
*/
package authapi
