package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GainRequest holds the fields of POST /tokens/gain.
type GainRequest struct {
	Username string
	Password string

	// DeviceID names the device the pair is bound to. The server uses
	// "none" when empty.
	DeviceID string

	// Scope narrows the category default when set.
	Scope []string
}

// Gain exchanges a username and password for a token pair. Tokens issued
// earlier for the same device are revoked by the server.
func (c *SDKClient) Gain(ctx context.Context, req GainRequest) (*TokenResponse, error) {
	data := url.Values{
		"username": {req.Username},
		"password": {req.Password},
	}
	if req.DeviceID != "" {
		data.Set("device_id", req.DeviceID)
	}
	if len(req.Scope) > 0 {
		data.Set("scope", strings.Join(req.Scope, " "))
	}

	resp, err := c.doForm(ctx, http.MethodPost, "/tokens/gain", data, nil)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// Refresh exchanges a refresh token for a new pair. The owner's
// credentials are sent with HTTP Basic authentication.
func (c *SDKClient) Refresh(
	ctx context.Context,
	username, password, refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	resp, err := c.doForm(ctx, http.MethodPost, "/tokens/refresh", data, &basicAuth{username, password})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// Revoke revokes the listed token ids (jti), or every token of the user
// when none are given. It returns the ids the server actually revoked.
func (c *SDKClient) Revoke(
	ctx context.Context,
	username, password string,
	tokenIDs ...string,
) ([]string, error) {
	data := url.Values{}
	for _, id := range tokenIDs {
		data.Add("tokens", id)
	}

	resp, err := c.doForm(ctx, http.MethodPatch, "/tokens/revoke", data, &basicAuth{username, password})
	if err != nil {
		return nil, err
	}

	var revokeResp RevokeResponse
	if err := decodeJSON(resp, &revokeResp, http.StatusOK); err != nil {
		return nil, err
	}
	return revokeResp.Revoked, nil
}
