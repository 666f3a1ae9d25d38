package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sigilauth/sigil/internal/auth/domain"
	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/pkg/authapi"
	"github.com/sigilauth/sigil/pkg/httpx"
)

// KeyRotationHandler handles key rotation operations for both ephemeral and
// persistent modes. All endpoints require admin scopes (admin:write for
// mutations, admin:read for listing).
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /v1/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Generate a new signing key and optionally retire existing keys (works in both ephemeral and persistent modes)
//	@Tags			Keys
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authapi.RotateKeyRequest	true	"Rotation options"
//	@Success		200		{object}	authapi.RotateKeyResponse
//	@Failure		400		{object}	authapi.ErrorResponse	"Bad Request"
//	@Failure		401		{object}	authapi.ErrorResponse	"Unauthorized"
//	@Failure		403		{object}	authapi.ErrorResponse	"Forbidden - requires admin:write scope"
//	@Failure		500		{object}	authapi.ErrorResponse	"Internal Server Error"
//	@Security		BearerAuth
//	@Router			/v1/keys/rotate [post]
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	var req authapi.RotateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}

	resp, err := h.KeyRotationService.RotateKey(r.Context(), service.RotateKeyRequest{
		RetireExisting: req.RetireExisting,
	})
	if err != nil {
		authapi.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authapi.RotateKeyResponse{
		NewKey:      domainToKeyInfo(resp.NewKey),
		RetiredKeys: domainKeysToInfo(resp.RetiredKeys),
		ActiveKeys:  resp.ActiveKeys,
	})
}

// HandleListKeys handles GET /v1/keys
//
//	@Summary		List signing keys
//	@Description	List all signing keys with their status (works in both ephemeral and persistent modes)
//	@Tags			Keys
//	@Produce		json
//	@Success		200	{array}		authapi.SigningKeyInfo
//	@Failure		401	{object}	authapi.ErrorResponse	"Unauthorized"
//	@Failure		403	{object}	authapi.ErrorResponse	"Forbidden - requires admin:read scope"
//	@Failure		500	{object}	authapi.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/keys [get]
func (h *KeyRotationHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.KeyRotationService.ListSigningKeys(r.Context())
	if err != nil {
		authapi.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, domainKeysToInfo(keys))
}

// HandleRetireKey handles POST /v1/keys/{kid}/retire
//
//	@Summary		Retire a signing key
//	@Description	Mark a specific key as retired without generating a new one. The key keeps verifying existing tokens during the grace period.
//	@Tags			Keys
//	@Produce		json
//	@Param			kid	path		string	true	"Key ID to retire"
//	@Success		200	{object}	authapi.StatusResponse
//	@Failure		400	{object}	authapi.ErrorResponse
//	@Failure		401	{object}	authapi.ErrorResponse	"Unauthorized"
//	@Failure		403	{object}	authapi.ErrorResponse	"Forbidden - requires admin:write scope"
//	@Failure		500	{object}	authapi.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/keys/{kid}/retire [post]
func (h *KeyRotationHandler) HandleRetireKey(w http.ResponseWriter, r *http.Request) {
	kid := r.PathValue("kid")
	if kid == "" {
		authapi.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.KeyRotationService.RetireKey(r.Context(), kid); err != nil {
		authapi.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authapi.StatusResponse{Status: "ok"})
}

func domainToKeyInfo(key domain.SigningKey) authapi.SigningKeyInfo {
	info := authapi.SigningKeyInfo{
		Kid:       key.Kid,
		Algorithm: key.Algorithm,
	}
	if !key.CreatedAt.IsZero() {
		info.CreatedAt = key.CreatedAt.Format(time.RFC3339)
	}
	if key.RetiredAt != nil {
		info.RetiredAt = key.RetiredAt.Format(time.RFC3339)
	}
	if !key.ExpiresAt.IsZero() {
		info.ExpiresAt = key.ExpiresAt.Format(time.RFC3339)
	}
	return info
}

func domainKeysToInfo(keys []domain.SigningKey) []authapi.SigningKeyInfo {
	infos := make([]authapi.SigningKeyInfo, len(keys))
	for i, key := range keys {
		infos[i] = domainToKeyInfo(key)
	}
	return infos
}
