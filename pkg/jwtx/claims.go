package jwtx

import (
	"encoding/json"
	"math"
	"time"
)

// Default token lifetimes used when an issuer is configured without them.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour

	// iatLeeway bounds how far in the future "iat" may sit.
	iatLeeway = time.Second
)

// Header is the JOSE header of a token.
type Header struct {
	Type      string    `json:"typ"`
	Algorithm Algorithm `json:"alg"`
}

// Token is a decoded token whose header and claims passed the claim model.
// Values are read-only once NewToken returns.
type Token struct {
	Header Header

	Issuer    string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time // zero when absent
	Audience  []string
	Scope     []string
	ID        string
	DeviceID  string

	// Private holds every claim the model does not know about.
	Private map[string]any
}

// IsRefresh reports whether the token carries the refresh marker.
func (t *Token) IsRefresh() bool {
	return len(t.Scope) > 0 && t.Scope[0] == ScopeRefresh
}

// RequestedScope returns the scope without the refresh marker.
func (t *Token) RequestedScope() []string {
	if t.IsRefresh() {
		return append([]string(nil), t.Scope[1:]...)
	}
	return append([]string(nil), t.Scope...)
}

// NewToken checks a decoded header and payload against the claim model at
// the instant now. Checks run in a fixed order: the "iat" drift bound, then
// expiry, then ordering between "exp", "nbf" and "iat".
func NewToken(header, payload map[string]any, now time.Time) (*Token, error) {
	fail := func(err error, msg string) (*Token, error) {
		return nil, newValidationError(err, msg, header, payload)
	}

	h, msg := parseHeader(header)
	if msg != "" {
		return fail(ErrInvalidHeader, msg)
	}

	t := &Token{Header: h, Private: map[string]any{}}
	var ok bool

	if t.Issuer, ok = requiredString(payload, "iss"); !ok {
		return fail(ErrInvalidClaim, "iss must be a string")
	}
	if t.Subject, ok = requiredString(payload, "sub"); !ok {
		return fail(ErrInvalidClaim, "sub must be a string")
	}
	if t.ExpiresAt, ok = requiredTime(payload, "exp"); !ok {
		return fail(ErrInvalidClaim, "exp must be a numeric date")
	}
	if t.IssuedAt, ok = requiredTime(payload, "iat"); !ok {
		return fail(ErrInvalidClaim, "iat must be a numeric date")
	}
	if _, present := payload["nbf"]; present {
		if t.NotBefore, ok = requiredTime(payload, "nbf"); !ok {
			return fail(ErrInvalidClaim, "nbf must be a numeric date")
		}
	}
	if t.Audience, ok = stringList(payload, "aud"); !ok {
		return fail(ErrInvalidClaim, "aud must be a string or a list of strings")
	}
	if t.Scope, ok = stringList(payload, "scope"); !ok {
		return fail(ErrInvalidClaim, "scope must be a string or a list of strings")
	}
	if t.ID, ok = optionalString(payload, "jti"); !ok {
		return fail(ErrInvalidClaim, "jti must be a string")
	}
	if t.DeviceID, ok = optionalString(payload, "device_id"); !ok {
		return fail(ErrInvalidClaim, "device_id must be a string")
	}

	for k, v := range payload {
		if !registeredClaims[k] {
			t.Private[k] = v
		}
	}

	if t.IssuedAt.After(now.Add(iatLeeway)) {
		return fail(ErrInvalidClaim, "iat < now+1s")
	}
	if t.ExpiresAt.Before(now) {
		return fail(ErrExpired, "")
	}
	if !t.NotBefore.IsZero() {
		if !(t.ExpiresAt.After(t.NotBefore) && t.NotBefore.After(t.IssuedAt)) {
			return fail(ErrInvalidClaim, "exp > nbf > iat")
		}
	} else if !t.ExpiresAt.After(t.IssuedAt) {
		return fail(ErrInvalidClaim, "exp > iat")
	}

	return t, nil
}

var registeredClaims = map[string]bool{
	"iss": true, "sub": true, "exp": true, "iat": true, "nbf": true,
	"aud": true, "scope": true, "jti": true, "device_id": true,
}

func parseHeader(header map[string]any) (Header, string) {
	typ, ok := header["typ"].(string)
	if !ok || typ == "" {
		return Header{}, "typ is required"
	}
	raw, _ := header["alg"].(string)
	alg, err := ParseAlgorithm(raw)
	if err != nil || string(alg) != raw {
		return Header{}, "alg must be one of HS256, RS256, ES256"
	}
	return Header{Type: typ, Algorithm: alg}, ""
}

func requiredString(payload map[string]any, name string) (string, bool) {
	s, ok := payload[name].(string)
	return s, ok
}

func optionalString(payload map[string]any, name string) (string, bool) {
	v, present := payload[name]
	if !present || v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

// stringList accepts a missing claim, a single string or a list of strings.
func stringList(payload map[string]any, name string) ([]string, bool) {
	switch v := payload[name].(type) {
	case nil:
		return nil, true
	case string:
		return []string{v}, true
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func requiredTime(payload map[string]any, name string) (time.Time, bool) {
	var secs float64
	switch v := payload[name].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	case float64:
		secs = v
	case int64:
		secs = float64(v)
	case int:
		secs = float64(v)
	default:
		return time.Time{}, false
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC(), true
}

// ceilUnix rounds t up to whole seconds so a token never expires earlier
// than its configured lifetime.
func ceilUnix(t time.Time) int64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return s
}
