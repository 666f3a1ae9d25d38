package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Exchanges a username/password pair for an access and refresh token.
//	@Description	Unknown usernames and wrong passwords are indistinguishable in the response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authapi.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authapi.TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authapi.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authapi.ErrorResponse	"error, error_description"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authapi.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Secret == "" {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Login(ctx, req.Username, req.Secret)
	if err != nil {
		writeServiceError(w, log, "login", err)
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
