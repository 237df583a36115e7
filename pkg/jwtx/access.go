package jwtx

import "fmt"

const (
	// ScopeAll grants every scope.
	ScopeAll = "all"
	// ScopeRefresh is the first scope entry of every refresh token.
	ScopeRefresh = "refresh"
)

// Authorize decides whether a token holding tokenScopes may access a
// resource requiring every scope in required.
//
// A refresh token is denied even when it holds ScopeAll.
func Authorize(tokenScopes, required []string) error {
	if len(tokenScopes) > 0 && tokenScopes[0] == ScopeRefresh {
		return ErrRefreshToken
	}

	held := make(map[string]struct{}, len(tokenScopes))
	for _, s := range tokenScopes {
		held[s] = struct{}{}
	}
	if _, ok := held[ScopeAll]; ok {
		return nil
	}

	var missing []string
	for _, s := range required {
		if _, ok := held[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrInsufficientScope, missing)
	}
	return nil
}
