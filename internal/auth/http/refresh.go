package http

import (
	"encoding/json"
	"net/http"

	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

// RefreshHandler serves POST /v1/auth/refresh. Each refresh token can be
// redeemed exactly once: redeeming it revokes it before the new pair is
// returned, and a replay fails with 401.
type RefreshHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Refresh
//	@Description	Rotates a refresh token: revokes the presented token and returns a new token pair.
//	@Description	The session id is preserved across rotations.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authapi.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authapi.TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authapi.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authapi.ErrorResponse	"error, error_description"
//	@Failure		503		{object}	authapi.ErrorResponse	"revocation store unavailable"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authapi.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeServiceError(w, log, "refresh", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authapi.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
