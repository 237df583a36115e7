package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/internal/auth/store"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/httpx"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/aussiebroadwan/currex/pkg/slogx"

	_ "github.com/aussiebroadwan/currex/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits holds the profiles applied to each class of endpoint.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
}

// DefaultRateLimits returns the httpx profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	jwks         authsdk.JWKSResponse
	signerReady  bool
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	TokenService *service.TokenService
	UserService  *service.UserService
	Scopes       *domain.ScopeRegistry
	Metrics      *metrics.Metrics // Optional: /metrics is not served without it
	RateLimits   RateLimits
}

func NewRouter(
	jwks authsdk.JWKSResponse,
	signerReady bool,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		jwks:         jwks,
		signerReady:  signerReady,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		RateLimits:   DefaultRateLimits(),
	}
}

func (r *Router) ApplyRoutes() {
	// Request logging runs outermost so metrics and handlers see the
	// request-scoped logger.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.Metrics.Middleware,
	}

	r.registerTokens()
	r.registerClients()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Currex Authentication Service API
//	@version		0.1.0
//	@description	Issues, refreshes and revokes the JWT bearer tokens of the currency exchange API.
//	@description
//	@description				Tokens are bound to a device; gaining a new pair for a device revokes the previous one.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/currex
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.basic	BasicAuth
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// bearer authenticates the request and admits tokens holding every
// required scope. Refresh tokens never pass. Requests are limited per IP
// before the token is verified and per subject after.
func (r *Router) bearer(limit httpx.RateLimitConfig, required ...string) []httpx.Middleware {
	return []httpx.Middleware{
		httpx.RateLimitByIP(limit),
		httpx.BearerAuth(r.TokenService, describeBearerError),
		r.countDenied(required),
		httpx.RequireScopes(required...),
		httpx.RateLimitBySubject(limit),
	}
}

// countDenied records the denials RequireScopes is about to answer.
func (r *Router) countDenied(required []string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if tok, ok := httpx.TokenFromContext(req.Context()); ok {
				if err := jwtx.Authorize(tok.Scope, required); err != nil {
					reason := "insufficient_scope"
					if errors.Is(err, jwtx.ErrRefreshToken) {
						reason = "refresh_token"
					}
					r.Metrics.AccessDenied(reason)
				}
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (r *Router) registerTokens() {
	h := &TokenHandler{TokenService: r.TokenService}

	// POST /tokens/gain - strict rate limit by IP + username (password guessing)
	r.Mux.Handle("POST /tokens/gain",
		httpx.Chain(http.HandlerFunc(h.HandleGain),
			httpx.RateLimitByIPAndFormField(r.RateLimits.Strict, "username"),
		),
	)

	// POST /tokens/refresh - strict rate limit by IP
	r.Mux.Handle("POST /tokens/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.RateLimits.Strict),
		),
	)

	// PATCH /tokens/revoke - moderate rate limit by IP + Basic user
	r.Mux.Handle("PATCH /tokens/revoke",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			httpx.RateLimitByIPAndBasicUser(r.RateLimits.Moderate),
		),
	)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{UserService: r.UserService}

	// POST /clients/register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /clients/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.RateLimits.Strict),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// Any access token - lenient rate limit by IP, then by subject
	r.Mux.Handle("GET /users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.bearer(r.RateLimits.Lenient)...,
		),
	)
	r.Mux.Handle("GET /scopes",
		httpx.Chain(ScopesHandler(r.Scopes),
			r.bearer(r.RateLimits.Lenient)...,
		),
	)

	// Admin lookups require "all" - moderate rate limit by IP, then by subject
	r.Mux.Handle("GET /admin/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGetUser),
			r.bearer(r.RateLimits.Moderate, domain.ScopeAll)...,
		),
	)
	r.Mux.Handle("GET /admin/users/search",
		httpx.Chain(http.HandlerFunc(h.HandleSearch),
			r.bearer(r.RateLimits.Moderate, domain.ScopeAll)...,
		),
	)
}

func (r *Router) registerSystem() {
	h := &SystemHandler{
		StartTime:   r.startTime,
		Version:     r.buildVersion,
		DB:          r.store,
		SignerReady: r.signerReady,
		Keys:        r.jwks,
	}

	// Probes and key discovery are polled often, so they get the lenient profile.
	lenient := httpx.RateLimitByIP(r.RateLimits.Lenient)
	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(h.HandleLivez), lenient))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(h.HandleReadyz), lenient))
	r.Mux.Handle("GET /.well-known/jwks.json", httpx.Chain(http.HandlerFunc(h.HandleJWKS), lenient))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
