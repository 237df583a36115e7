package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

// Authenticator turns a raw bearer token into a validated, non-revoked token.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*jwtx.Token, error)
}

// BearerErrorFunc maps an authentication failure to the error_description
// sent with a 401. ok is false for failures that are not the client's
// fault; those are answered with a 500.
type BearerErrorFunc func(err error) (desc string, ok bool)

// BearerAuth requires an "Authorization: Bearer" header and stores the
// authenticated token on the request context.
func BearerAuth(a Authenticator, describe BearerErrorFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			tok, err := a.Authenticate(ctx, raw)
			if err != nil {
				desc, ok := describe(err)
				if !ok {
					log.Error("bearer authentication failed", "err", err)
					WriteJSON(w, http.StatusInternalServerError, map[string]string{
						"error":             "server_error",
						"error_description": "An internal error occurred",
					})
					return
				}
				log.Info("bearer token rejected", "reason", desc, "err", err)
				writeBearerError(w, desc)
				return
			}

			ctx = slogx.With(ctx, "sub", tok.Subject)
			next.ServeHTTP(w, r.WithContext(WithToken(ctx, tok)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
