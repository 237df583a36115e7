package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

var errCategoryNotIssuable = &authsdk.APIError{
	StatusCode:  http.StatusForbidden,
	Code:        authsdk.ErrorCodeAccessDenied,
	Description: "User category cannot be issued tokens",
}

// describeBearerError names a bearer token failure for the
// WWW-Authenticate error_description. Store failures are not described.
func describeBearerError(err error) (string, bool) {
	switch {
	case errors.Is(err, jwtx.ErrBadSignature):
		return "bad token signature", true
	case errors.Is(err, jwtx.ErrCorrupted):
		return "corrupted token", true
	case errors.Is(err, jwtx.ErrExpired):
		return "expired token", true
	case errors.Is(err, jwtx.ErrInvalidClaim), errors.Is(err, jwtx.ErrInvalidHeader):
		return "invalid token", true
	case errors.Is(err, service.ErrTokenRevoked):
		return "revoked token", true
	case errors.Is(err, service.ErrUnrecognizedToken):
		return "unrecognized token", true
	default:
		return "", false
	}
}

// tokenFlowError maps an error of the gain, refresh or revoke flows to its
// response.
func tokenFlowError(err error) *authsdk.APIError {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return authsdk.ErrUserNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrUserInactive):
		return authsdk.ErrUserInactive
	case errors.Is(err, service.ErrInvalidScope):
		return authsdk.ErrInvalidScope
	case errors.Is(err, service.ErrCategoryNotIssuable):
		return errCategoryNotIssuable
	case errors.Is(err, service.ErrOwnerMismatch):
		return authsdk.ErrOwnerMismatch
	case errors.Is(err, service.ErrTokenRevoked):
		return authsdk.ErrRevokedRefreshToken
	case errors.Is(err, service.ErrUnrecognizedToken):
		return authsdk.ErrInvalidToken.WithDescription("Unrecognized token")
	case errors.Is(err, jwtx.ErrBadSignature):
		return authsdk.ErrInvalidToken.WithDescription("Bad token signature")
	case errors.Is(err, jwtx.ErrCorrupted):
		return authsdk.ErrInvalidToken.WithDescription("Corrupted token")
	case errors.Is(err, jwtx.ErrExpired):
		return authsdk.ErrInvalidToken.WithDescription("Expired token")
	case errors.Is(err, jwtx.ErrInvalidClaim),
		errors.Is(err, jwtx.ErrInvalidHeader),
		errors.Is(err, service.ErrNotRefreshToken):
		return authsdk.ErrInvalidToken
	default:
		return nil
	}
}

// writeTokenFlowError writes err's response. Endpoints authenticated with
// HTTP Basic pass challenge so a 401 carries the Basic challenge header.
func writeTokenFlowError(w http.ResponseWriter, r *http.Request, op string, err error, challenge bool) {
	if apiErr := tokenFlowError(err); apiErr != nil {
		slogx.FromContext(r.Context()).Info(op+" rejected", "reason", apiErr.Description)
		if challenge && apiErr.StatusCode == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Basic realm="currex"`)
		}
		apiErr.WriteError(w)
		return
	}
	slogx.FromContext(r.Context()).Error(op+" failed", "err", err)
	authsdk.ErrServerError.WriteError(w)
}
