package httpx

import "context"

type ctxKey string

// Request context keys populated by AuthnMiddleware.
const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyScopes ctxKey = "scopes"
	CtxKeyClaims ctxKey = "claims"
)

func scopesFromCtx(ctx context.Context) []string {
	scopes, _ := ctx.Value(CtxKeyScopes).([]string)
	return scopes
}
