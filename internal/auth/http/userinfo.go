package http

import (
	"net/http"

	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP handles the UserInfo endpoint. Unlike token verification, which
// never leaves the claims, this endpoint does the full store round-trip so
// the response reflects the user record as it is right now.
//
//	@Summary		Get user information
//	@Description	Returns the profile of the user identified by the access token. Requires the 'profile:read' scope.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authapi.UserInfoResponse	"User information (user_id, username, preferred_name, scopes)"
//	@Failure		401	{object}	authapi.ErrorResponse		"Invalid or missing access token"
//	@Failure		500	{object}	authapi.ErrorResponse		"Internal server error"
//	@Router			/v1/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := ctx.Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		authapi.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("userinfo lookup failed", "user_id", userID, "err", err)
		authapi.ErrServerError.WriteError(w)
		return
	}

	p := user.Principal()
	response := authapi.UserInfoResponse{
		UserID:        p.ID,
		Username:      p.Username,
		PreferredName: p.PreferredName,
		Scopes:        p.Scopes,
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
