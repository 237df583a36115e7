package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/httpx"
)

// TokenHandler serves the /tokens endpoints.
// All of them accept application/x-www-form-urlencoded bodies.
type TokenHandler struct {
	TokenService *service.TokenService
}

// HandleGain godoc
//
//	@Summary		Gain a token pair
//	@Description	Checks the username and password and issues an access and refresh token bound to the device.
//	@Description	Tokens issued earlier to the same user and device are revoked.
//	@Tags			Tokens
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string					true	"Username"
//	@Param			password	formData	string					true	"Password"
//	@Param			device_id	formData	string					false	"Device identifier"	default(none)
//	@Param			scope		formData	string					false	"Space-delimited scopes narrowing the category default"
//	@Success		200			{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400			{object}	authsdk.APIError		"error, error_description"
//	@Failure		401			{object}	authsdk.APIError		"User not found / Incorrect username or password"
//	@Failure		403			{object}	authsdk.APIError		"User is not active"
//	@Failure		429			{string}	string					"rate limit exceeded"
//	@Header			200			{string}	Cache-Control			"no-store"
//	@Router			/tokens/gain [post].
func (h *TokenHandler) HandleGain(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	req := service.GrantRequest{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
		DeviceID: strings.TrimSpace(r.PostForm.Get("device_id")),
		Scope:    httpx.ParseSpaceDelimitedFields(r.PostForm.Get("scope")),
	}
	if req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	pair, err := h.TokenService.Grant(r.Context(), req)
	if err != nil {
		writeTokenFlowError(w, r, "token gain", err, false)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRefresh godoc
//
//	@Summary		Refresh a token pair
//	@Description	Exchanges a refresh token for a new pair with the same scope. The owner authenticates with HTTP Basic.
//	@Description	Presenting a refresh token that was already revoked revokes every token of its device.
//	@Tags			Tokens
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BasicAuth
//	@Param			grant_type		formData	string					true	"Must be refresh_token"	Enums(refresh_token)
//	@Param			refresh_token	formData	string					true	"Refresh token"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.APIError		"Bad token signature / Invalid token / Expired token / Corrupted token / Unrecognized token"
//	@Failure		401				{object}	authsdk.APIError		"User not found / Incorrect username or password"
//	@Failure		403				{object}	authsdk.APIError		"User is not active / token owner mismatch / revoked token"
//	@Failure		429				{string}	string					"rate limit exceeded"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Router			/tokens/refresh [post].
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	username, password, ok := basicCredentials(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	if r.PostForm.Get("grant_type") != "refresh_token" {
		authsdk.ErrUnsupportedGrantType.WriteError(w)
		return
	}
	refresh := strings.TrimSpace(r.PostForm.Get("refresh_token"))
	if refresh == "" {
		authsdk.ErrInvalidRequest.WithDescription("refresh_token is required").WriteError(w)
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), service.RefreshRequest{
		Username:     username,
		Password:     password,
		RefreshToken: refresh,
	})
	if err != nil {
		writeTokenFlowError(w, r, "token refresh", err, true)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRevoke godoc
//
//	@Summary		Revoke tokens
//	@Description	Revokes the listed token ids of the authenticated user, or all of the user's tokens when none are listed.
//	@Description	Ids that are unknown, already revoked or owned by someone else are ignored.
//	@Tags			Tokens
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BasicAuth
//	@Param			tokens	formData	[]string				false	"Token ids (jti) to revoke"	collectionFormat(multi)
//	@Success		200		{object}	authsdk.RevokeResponse	"revoked"
//	@Failure		401		{object}	authsdk.APIError		"User not found / Incorrect username or password"
//	@Failure		403		{object}	authsdk.APIError		"User is not active"
//	@Failure		429		{string}	string					"rate limit exceeded"
//	@Router			/tokens/revoke [patch].
func (h *TokenHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	username, password, ok := basicCredentials(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	var ids []string
	for _, id := range r.PostForm["tokens"] {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	revoked, err := h.TokenService.Revoke(r.Context(), service.RevokeRequest{
		Username: username,
		Password: password,
		TokenIDs: ids,
	})
	if err != nil {
		writeTokenFlowError(w, r, "token revoke", err, true)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeResponse{Revoked: revoked})
}

func tokenResponse(p *domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
		Scope:        p.Scope,
	}
}

// parseForm checks the content type and parses the body into r.PostForm.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

func basicCredentials(w http.ResponseWriter, r *http.Request) (username, password string, ok bool) {
	username, password, ok = r.BasicAuth()
	if !ok || username == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="currex"`)
		authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeInvalidRequest,
			"HTTP Basic credentials are required").WriteError(w)
		return "", "", false
	}
	return username, password, true
}
