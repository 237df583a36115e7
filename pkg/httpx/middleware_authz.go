package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

// RequireScopes admits tokens holding every listed scope, or "all". Refresh
// tokens are always turned away. Must run after BearerAuth.
func RequireScopes(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			tok, ok := TokenFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			if err := jwtx.Authorize(tok.Scope, required); err != nil {
				reason := "insufficient scope"
				if errors.Is(err, jwtx.ErrRefreshToken) {
					reason = "refresh token used for resource access"
				}
				log.Info("access denied",
					"reason", reason,
					"token_scope", tok.Scope,
					"required_scope", required,
				)
				writeBearerScopeError(w, required...)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeBearerScopeError(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "Access denied",
	})
}
