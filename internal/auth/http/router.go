package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/httpx"
	"github.com/sigilauth/sigil/pkg/jwtx"
	"github.com/sigilauth/sigil/pkg/slogx"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Router wires handlers to routes and carries their shared dependencies.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store              store.Store
	SessionService     *service.SessionService
	UserService        *service.UserService
	KeyRotationService *service.KeyRotationService
}

func NewRouter(keys *jwtx.KeySet, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		middlewares:  []httpx.Middleware{slogx.HTTPMiddleware(logger)},
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}
}

// ApplyRoutes registers every route. Call after the service fields are set.
func (r *Router) ApplyRoutes() {
	r.routeSessions()
	r.routeUsers()
	r.routeKeys()
	r.routeSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
//
//	@title			Sigil Authentication Service API
//	@version		0.1.0
//	@description	Stateless-credential authentication service issuing short-lived JWT access
//	@description	tokens alongside single-use refresh tokens with rotation and reuse detection.
//	@description
//	@description				Tokens can be verified locally using the JWKS endpoint.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) routeSessions() {
	// Login and refresh get the strict budget: both hit the credential
	// store and both are the routes an attacker hammers.
	r.Mux.Handle("POST /v1/auth/login", httpx.Chain(
		&LoginHandler{Sessions: r.SessionService},
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
	r.Mux.Handle("POST /v1/auth/refresh", httpx.Chain(
		&RefreshHandler{Sessions: r.SessionService},
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
	r.Mux.Handle("POST /v1/auth/logout", httpx.Chain(
		&LogoutHandler{Sessions: r.SessionService},
		httpx.RateLimitByIP(httpx.ModerateLimit),
	))

	r.Mux.Handle("GET /.well-known/jwks.json", httpx.Chain(
		JWKSHandler(r.keys),
		httpx.RateLimitByIP(httpx.PublicLimit),
	))
}

func (r *Router) routeUsers() {
	r.Mux.Handle("GET /v1/userinfo", httpx.Chain(
		&UserInfoHandler{UserService: r.UserService},
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RequireAnyScope("profile:read"),
		httpx.RateLimitByUser(httpx.LenientLimit),
	))
}

// routeKeys registers the rotation endpoints. They work in ephemeral mode
// too, the keys just don't survive a restart there.
func (r *Router) routeKeys() {
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	admin := func(next http.Handler, scope string) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RequireAnyScope(scope),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/keys/rotate", admin(http.HandlerFunc(h.HandleRotate), "admin:write"))
	r.Mux.Handle("GET /v1/keys", admin(http.HandlerFunc(h.HandleListKeys), "admin:read"))
	r.Mux.Handle("POST /v1/keys/{kid}/retire", admin(http.HandlerFunc(h.HandleRetireKey), "admin:write"))
}

func (r *Router) routeSystem() {
	// Probes get the lenient budget since monitors poll them hard.
	r.Mux.Handle("GET /livez", httpx.Chain(
		LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(httpx.LenientLimit),
	))
	r.Mux.Handle("GET /readyz", httpx.Chain(
		ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
		httpx.RateLimitByIP(httpx.LenientLimit),
	))
}
