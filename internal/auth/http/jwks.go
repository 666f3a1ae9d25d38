package http

import (
	"net/http"

	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
// Resource services use this to verify access tokens locally instead of
// calling back to the auth service on every request.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify JWTs.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authapi.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authapi.JWKSResponse(keys.PublicJWKS()))
	}
}
