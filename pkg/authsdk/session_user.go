package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// GetMe returns the user the session's access token was issued to.
func (s *Session) GetMe(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/users/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListScopes returns every scope the service knows about.
func (s *Session) ListScopes(ctx context.Context) (*ScopesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/scopes", nil, nil)
	if err != nil {
		return nil, err
	}

	var scopes ScopesResponse
	if err := decodeJSON(resp, &scopes, http.StatusOK); err != nil {
		return nil, err
	}
	return &scopes, nil
}

// GetUser looks a user up by id (requires the "all" scope).
func (s *Session) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	path := "/admin/users/" + strconv.FormatInt(id, 10)
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil, ScopeAll)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers looks a user up by exact username (requires the "all" scope).
// An unknown username yields an empty list.
func (s *Session) SearchUsers(ctx context.Context, username string) (*UserListResponse, error) {
	path := "/admin/users/search?" + url.Values{"username": {username}}.Encode()
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil, ScopeAll)
	if err != nil {
		return nil, err
	}

	var users UserListResponse
	if err := decodeJSON(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return &users, nil
}
