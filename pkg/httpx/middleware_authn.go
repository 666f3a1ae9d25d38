package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/sigilauth/sigil/pkg/jwtx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

// AccessAuthenticator validates a raw access token and returns its claims.
// The session service implements this so the middleware picks up the full
// verification pipeline, including revocation checks when those are enabled
// for access tokens.
type AccessAuthenticator interface {
	Authenticate(ctx context.Context, rawToken string) (jwtx.Claims, error)
}

func AuthnMiddleware(a AccessAuthenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(authz, "Bearer ")
			if !found {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := a.Authenticate(ctx, strings.TrimSpace(raw))
			if err != nil {
				// The reason stays in the logs, never in the response.
				writeBearerError(w, "token verification failed")
				log.Warn("access token rejected", "err", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth. The JSON body
// mirrors the WWW-Authenticate challenge so API clients can match on
// the error code.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
