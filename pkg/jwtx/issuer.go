package jwtx

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// IssuerConfig is the policy an Issuer stamps into every token.
type IssuerConfig struct {
	Algorithm Algorithm
	Key       any

	Issuer   string
	Audience []string
	Scope    []string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// NotBefore, when positive, sets "nbf" to issuance time plus this offset.
	NotBefore time.Duration

	AssignJTI     bool
	PrivateClaims map[string]any

	Now func() time.Time
}

// IssueOptions override issuer defaults for a single token.
type IssueOptions struct {
	Audience      []string
	Scope         []string
	PrivateClaims map[string]any

	// DismissPresetPrivateClaims drops the issuer's PrivateClaims for this token.
	DismissPresetPrivateClaims bool
}

// Issued is a freshly signed token together with what went into it.
type Issued struct {
	Token     string
	Header    Header
	Payload   map[string]any
	ID        string
	Scope     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn is the lifetime in whole seconds as stamped into the token.
func (i *Issued) ExpiresIn() int64 {
	return i.ExpiresAt.Unix() - i.IssuedAt.Unix()
}

// Issuer builds and signs access and refresh tokens. It is safe for
// concurrent use; its configuration is fixed at construction.
type Issuer struct {
	cfg IssuerConfig
	key any
}

// NewIssuer validates cfg and fills in default lifetimes.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if _, err := cfg.Algorithm.method(); err != nil {
		return nil, err
	}
	key, err := signingKey(cfg.Algorithm, cfg.Key)
	if err != nil {
		return nil, err
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	// iat is rounded up by at most a second, so exp > nbf needs that much slack.
	if cfg.NotBefore < 0 || (cfg.NotBefore > 0 &&
		ceilSeconds(cfg.NotBefore)+1 >= ceilSeconds(min(cfg.AccessTTL, cfg.RefreshTTL))) {
		return nil, fmt.Errorf("jwtx: not before offset %s must leave at least a second before expiry", cfg.NotBefore)
	}
	cfg.Audience = append([]string(nil), cfg.Audience...)
	cfg.Scope = append([]string(nil), cfg.Scope...)
	cfg.PrivateClaims = maps.Clone(cfg.PrivateClaims)

	return &Issuer{cfg: cfg, key: key}, nil
}

// Scope returns the issuer's default scope.
func (i *Issuer) Scope() []string {
	return append([]string(nil), i.cfg.Scope...)
}

// AccessToken issues a token for resource access.
func (i *Issuer) AccessToken(subject string, opts IssueOptions) (*Issued, error) {
	return i.issue(subject, i.cfg.AccessTTL, false, opts)
}

// RefreshToken issues a token whose scope starts with the refresh marker.
func (i *Issuer) RefreshToken(subject string, opts IssueOptions) (*Issued, error) {
	return i.issue(subject, i.cfg.RefreshTTL, true, opts)
}

func (i *Issuer) issue(subject string, ttl time.Duration, refresh bool, opts IssueOptions) (*Issued, error) {
	now := i.cfg.Now()

	payload := map[string]any{}
	if !opts.DismissPresetPrivateClaims {
		maps.Copy(payload, i.cfg.PrivateClaims)
	}
	maps.Copy(payload, opts.PrivateClaims)

	iat := ceilUnix(now)
	exp := ceilUnix(now.Add(ttl))
	payload["iss"] = i.cfg.Issuer
	payload["sub"] = subject
	payload["iat"] = iat
	payload["exp"] = exp
	if i.cfg.NotBefore > 0 {
		// Offset from the rounded iat so nbf stays strictly after it.
		payload["nbf"] = iat + ceilSeconds(i.cfg.NotBefore)
	}

	aud := opts.Audience
	if len(aud) == 0 {
		aud = i.cfg.Audience
	}
	if len(aud) > 0 {
		payload["aud"] = append([]string(nil), aud...)
	}

	scope := opts.Scope
	if len(scope) == 0 {
		scope = i.cfg.Scope
	}
	scope = append([]string(nil), scope...)
	if refresh {
		scope = append([]string{ScopeRefresh}, scope...)
	}
	if len(scope) > 0 {
		payload["scope"] = scope
	}

	var jti string
	if i.cfg.AssignJTI {
		jti = uuid.NewString()
		payload["jti"] = jti
	}

	h := Header{Type: "JWT", Algorithm: i.cfg.Algorithm}
	signed, err := Encode(h, payload, i.key)
	if err != nil {
		return nil, fmt.Errorf("jwtx: issue token for %q: %w", subject, err)
	}

	return &Issued{
		Token:     signed,
		Header:    h,
		Payload:   payload,
		ID:        jti,
		Scope:     scope,
		IssuedAt:  time.Unix(iat, 0).UTC(),
		ExpiresAt: time.Unix(exp, 0).UTC(),
	}, nil
}

// ceilSeconds rounds d up to whole seconds.
func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
