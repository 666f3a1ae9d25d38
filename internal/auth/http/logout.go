package http

import (
	"encoding/json"
	"net/http"

	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

// LogoutHandler serves POST /v1/auth/logout. Logout is idempotent and
// succeeds whenever the token at least decodes and carries a valid
// signature: logging out twice, or logging out of an already-expired
// session, both return 200.
type LogoutHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Revokes a refresh token, ending the session. Idempotent.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authapi.LogoutRequest	true	"Refresh token"
//	@Success		200		{object}	authapi.StatusResponse	"status"
//	@Failure		400		{object}	authapi.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authapi.ErrorResponse	"error, error_description"
//	@Failure		503		{object}	authapi.ErrorResponse	"revocation store unavailable"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authapi.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Sessions.Logout(ctx, req.RefreshToken); err != nil {
		writeServiceError(w, log, "logout", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authapi.StatusResponse{Status: "ok"})
}
