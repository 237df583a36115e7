package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/httpx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

// UsersHandler serves user lookups for bearer-authenticated callers.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the user the access token was issued to.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserResponse	"id, username, category, is_active"
//	@Failure		401	{object}	authsdk.APIError		"invalid_token"
//	@Failure		403	{object}	authsdk.APIError		"insufficient_scope"
//	@Failure		404	{object}	authsdk.APIError		"user no longer exists"
//	@Router			/users/me [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	tok, ok := httpx.TokenFromContext(r.Context())
	if !ok {
		authsdk.ErrServerError.WriteError(w)
		return
	}

	_, id, err := domain.ParseSubject(tok.Subject)
	if err != nil {
		slogx.FromContext(r.Context()).Warn("token subject not parsable", "sub", tok.Subject)
		authsdk.ErrNotFound.WithDescription("User not found").WriteError(w)
		return
	}
	h.writeUser(w, r, id)
}

// HandleGetUser godoc
//
//	@Summary		Get a user
//	@Description	Looks a user up by id. Requires the "all" scope.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int						true	"User id"
//	@Success		200	{object}	authsdk.UserResponse	"id, username, category, is_active"
//	@Failure		400	{object}	authsdk.APIError		"malformed id"
//	@Failure		401	{object}	authsdk.APIError		"invalid_token"
//	@Failure		403	{object}	authsdk.APIError		"insufficient_scope"
//	@Failure		404	{object}	authsdk.APIError		"not found"
//	@Router			/admin/users/{id} [get].
func (h *UsersHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		authsdk.ErrInvalidRequest.WithDescription("id must be a positive integer").WriteError(w)
		return
	}
	h.writeUser(w, r, id)
}

// HandleSearch godoc
//
//	@Summary		Find a user by username
//	@Description	Exact username match. Returns an empty list when no user matches. Requires the "all" scope.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	query		string						true	"Username"
//	@Success		200			{object}	authsdk.UserListResponse	"users"
//	@Failure		400			{object}	authsdk.APIError			"missing username"
//	@Failure		401			{object}	authsdk.APIError			"invalid_token"
//	@Failure		403			{object}	authsdk.APIError			"insufficient_scope"
//	@Router			/admin/users/search [get].
func (h *UsersHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		authsdk.ErrInvalidRequest.WithDescription("username is required").WriteError(w)
		return
	}

	resp := authsdk.UserListResponse{Users: []authsdk.UserResponse{}}
	u, err := h.UserService.GetUserByUsername(r.Context(), username)
	switch {
	case err == nil:
		resp.Users = append(resp.Users, userResponse(u))
	case errors.Is(err, service.ErrUserNotFound):
	default:
		slogx.FromContext(r.Context()).Error("user search failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *UsersHandler) writeUser(w http.ResponseWriter, r *http.Request, id int64) {
	u, err := h.UserService.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			authsdk.ErrNotFound.WithDescription("User not found").WriteError(w)
			return
		}
		slogx.FromContext(r.Context()).Error("user lookup failed", "err", err, "user_id", id)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}
