package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
)

// IssuerSettings is the signing policy shared by every category issuer.
type IssuerSettings struct {
	Algorithm  jwtx.Algorithm
	Key        any
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	NotBefore  time.Duration
	Now        func() time.Time
}

// IssuerRegistry holds one issuer per user category, each preset with that
// category's default scope. It is built once at startup and read-only after.
type IssuerRegistry struct {
	issuers map[domain.Category]*jwtx.Issuer
}

// NewIssuerRegistry builds an issuer for every category the scope registry
// has defaults for. Categories without defaults cannot be issued tokens.
func NewIssuerRegistry(settings IssuerSettings, scopes *domain.ScopeRegistry) (*IssuerRegistry, error) {
	r := &IssuerRegistry{issuers: map[domain.Category]*jwtx.Issuer{}}
	for _, c := range domain.Categories {
		defaults, ok := scopes.Defaults(c)
		if !ok {
			continue
		}
		iss, err := jwtx.NewIssuer(jwtx.IssuerConfig{
			Algorithm:  settings.Algorithm,
			Key:        settings.Key,
			Issuer:     settings.Issuer,
			Audience:   settings.Audience,
			Scope:      defaults,
			AccessTTL:  settings.AccessTTL,
			RefreshTTL: settings.RefreshTTL,
			NotBefore:  settings.NotBefore,
			AssignJTI:  true, // revocation bookkeeping is keyed by jti
			Now:        settings.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("issuer for %s: %w", c, err)
		}
		r.issuers[c] = iss
	}
	return r, nil
}

// For returns the issuer of category c.
func (r *IssuerRegistry) For(c domain.Category) (*jwtx.Issuer, error) {
	iss, ok := r.issuers[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotIssuable, c)
	}
	return iss, nil
}
