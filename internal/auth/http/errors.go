package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/pkg/authapi"
)

// writeServiceError maps service-layer failures onto the wire contract.
// The typed taxonomy stays in the logs; callers only ever see the generic
// codes, so the API never acts as an oracle for why a token was rejected.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		log.Info(op+" rejected: invalid credentials")
		authapi.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrTokenMalformed),
		errors.Is(err, service.ErrBadSignature),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrWrongKind),
		errors.Is(err, service.ErrTokenRevoked):
		log.Info(op+" rejected", slog.String("reason", err.Error()))
		authapi.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error(op + " failed: revocation store unavailable")
		authapi.ErrStoreUnavailable.WriteError(w)
	default:
		log.Error(op+" failed", slog.Any("error", err))
		authapi.ErrServerError.WriteError(w)
	}
}
