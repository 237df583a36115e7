package authsdk

import "github.com/go-jose/go-jose/v4"

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is returned by POST /tokens/gain and POST /tokens/refresh.
type TokenResponse struct {
	// AccessToken is the JWT presented as a bearer token to protected endpoints
	AccessToken string `json:"access_token"`

	// RefreshToken is the JWT exchanged at /tokens/refresh for a new pair
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type" example:"bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in" example:"1800"`

	// Scope lists the scopes carried by the access token
	Scope []string `json:"scope" example:"currency:request,exch_rate:request"`
}

// RevokeResponse lists the token ids revoked by PATCH /tokens/revoke.
type RevokeResponse struct {
	Revoked []string `json:"revoked"`
}

// ============================================================================
// User Types
// ============================================================================

// UserResponse describes a registered user.
type UserResponse struct {
	ID       int64  `json:"id" example:"7"`
	Username string `json:"username" example:"bob_1"`
	Category string `json:"category" example:"API_CLIENT"`
	IsActive bool   `json:"is_active" example:"true"`
}

// UserListResponse wraps a list of users.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// ============================================================================
// Scope Types
// ============================================================================

// ScopeInfo describes one registered scope.
type ScopeInfo struct {
	Name        string `json:"name" example:"currency:request"`
	Description string `json:"description" example:"Read currencies."`
}

// ScopesResponse is returned by GET /scopes.
type ScopesResponse struct {
	Scopes []ScopeInfo `json:"scopes"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates whether a signing key is loaded
	Signer string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse is the key set served at /.well-known/jwks.json. It is
// empty when tokens are signed with a shared secret.
type JWKSResponse = jose.JSONWebKeySet
