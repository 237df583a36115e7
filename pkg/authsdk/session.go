package authsdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshMargin is subtracted from the access token lifetime so the
// session refreshes before the server would reject the token.
const refreshMargin = 30 * time.Second

// ScopeAll grants every scope.
const ScopeAll = "all"

// Session represents an authenticated session with automatic token refresh.
// All Session methods handle token expiration and refresh when needed.
//
// The refresh endpoint requires the owner's credentials alongside the
// refresh token, so the session keeps them for its lifetime.
type Session struct {
	client *SDKClient

	username string
	password string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	scopes       map[string]bool // Granted scopes for fast lookup
}

// newSession creates a new authenticated session from a token response.
func newSession(client *SDKClient, username, password string, tokenResp *TokenResponse) *Session {
	s := &Session{
		client:   client,
		username: username,
		password: password,
	}
	s.setTokens(tokenResp)
	return s
}

// setTokens must be called with mu held for writing, or before the session
// is shared.
func (s *Session) setTokens(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshMargin)

	s.scopes = make(map[string]bool, len(tokenResp.Scope))
	for _, scope := range tokenResp.Scope {
		s.scopes[scope] = true
	}
}

// getValidToken returns a valid access token, refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh exchanges the session's refresh token for a new pair right away.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return errors.New("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.Refresh(ctx, s.username, s.password, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.setTokens(tokenResp)
	return nil
}

// Revoke revokes the session's current access and refresh tokens. Other
// sessions of the same user are left alone.
func (s *Session) Revoke(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	raw := []string{s.accessToken, s.refreshToken}
	s.mu.RUnlock()

	ids := make([]string, 0, len(raw))
	for _, tok := range raw {
		if tok == "" {
			continue
		}
		id, err := tokenID(tok)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no tokens to revoke")
	}

	return s.client.Revoke(ctx, s.username, s.password, ids...)
}

// tokenID reads the jti claim without verifying the signature. The server
// does the verifying; the client only needs the id.
func tokenID(raw string) (string, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return "", fmt.Errorf("failed to read token id: %w", err)
	}
	if claims.ID == "" {
		return "", errors.New("token has no jti claim")
	}
	return claims.ID, nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Scopes returns a copy of the current granted scopes as a slice.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	return scopes
}

// HasScope returns true if the session has the specified scope, directly
// or through "all".
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[ScopeAll] || s.scopes[scope]
}

// checkScopes checks if the session has all required scopes.
// Returns an error if scope checking is enabled and scopes are missing.
func (s *Session) checkScopes(required ...string) error {
	if !s.client.CheckScopes || len(required) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.scopes[ScopeAll] {
		return nil
	}

	var missing []string
	for _, scope := range required {
		if !s.scopes[scope] {
			missing = append(missing, scope)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required scope(s): %s", strings.Join(missing, ", "))
	}

	return nil
}
