package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the currex authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes determines whether a Session checks its granted scopes
	// before calling an endpoint that requires them. Set to false in tests
	// that exercise the server-side check.
	// Default: true
	CheckScopes bool
}

// NewSDKClient creates a new auth service client with scope checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckScopes: true,
	}
}

// Authenticate gains a token pair for the device and wraps it in a Session.
// The credentials are kept by the session, which needs them to refresh.
func (c *SDKClient) Authenticate(ctx context.Context, req GainRequest) (*Session, error) {
	tokenResp, err := c.Gain(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSession(c, req.Username, req.Password, tokenResp), nil
}

// NewSessionFromTokens creates a session from a previously gained pair.
// The session will still refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(username, password string, tokenResp *TokenResponse) *Session {
	return newSession(c, username, password, tokenResp)
}
