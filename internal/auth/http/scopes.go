package http

import (
	"net/http"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/httpx"
)

// ScopesHandler godoc
//
//	@Summary		List scopes
//	@Description	Returns every scope the service issues, with descriptions.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ScopesResponse	"scopes"
//	@Failure		401	{object}	authsdk.APIError		"invalid_token"
//	@Router			/scopes [get].
func ScopesHandler(scopes *domain.ScopeRegistry) http.HandlerFunc {
	names := scopes.Names()
	resp := authsdk.ScopesResponse{Scopes: make([]authsdk.ScopeInfo, 0, len(names))}
	for _, n := range names {
		desc, _ := scopes.Describe(n)
		resp.Scopes = append(resp.Scopes, authsdk.ScopeInfo{Name: n, Description: desc})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
