package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Half a second past a whole second, so rounding direction is observable.
var issueNow = time.Unix(1_700_000_000, 500_000_000).UTC()

func newTestIssuer(t *testing.T, mut func(c *jwtx.IssuerConfig)) *jwtx.Issuer {
	t.Helper()
	cfg := jwtx.IssuerConfig{
		Algorithm:  jwtx.HS256,
		Key:        hmacSecret,
		Issuer:     "currex.auth",
		Audience:   []string{"currency_exchange_api"},
		Scope:      []string{"currency:request", "exch_rate:request"},
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
		AssignJTI:  true,
		Now:        func() time.Time { return issueNow },
	}
	if mut != nil {
		mut(&cfg)
	}
	iss, err := jwtx.NewIssuer(cfg)
	require.NoError(t, err)
	return iss
}

func validatorFor(t *testing.T, now time.Time) *jwtx.Validator {
	t.Helper()
	v, err := jwtx.NewValidator(jwtx.HS256, hmacSecret, func() time.Time { return now })
	require.NoError(t, err)
	return v
}

func TestIssuerAccessToken(t *testing.T) {
	iss := newTestIssuer(t, nil)

	issued, err := iss.AccessToken("currex.bob.id7", jwtx.IssueOptions{})
	require.NoError(t, err)

	require.Equal(t, jwtx.Header{Type: "JWT", Algorithm: jwtx.HS256}, issued.Header)
	require.Equal(t, int64(1_700_000_001), issued.Payload["iat"])
	require.Equal(t, int64(1_700_001_801), issued.Payload["exp"])
	require.Equal(t, int64(1800), issued.ExpiresIn())
	require.NotContains(t, issued.Payload, "nbf")
	require.Equal(t, []string{"currency:request", "exch_rate:request"}, issued.Scope)

	_, err = uuid.Parse(issued.ID)
	require.NoError(t, err)

	tok, err := validatorFor(t, issueNow).Validate(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "currex.auth", tok.Issuer)
	require.Equal(t, "currex.bob.id7", tok.Subject)
	require.Equal(t, []string{"currency_exchange_api"}, tok.Audience)
	require.Equal(t, issued.Scope, tok.Scope)
	require.Equal(t, issued.ID, tok.ID)
	require.False(t, tok.IsRefresh())
}

func TestIssuerRefreshToken(t *testing.T) {
	iss := newTestIssuer(t, nil)

	t.Run("default scope is prefixed", func(t *testing.T) {
		issued, err := iss.RefreshToken("currex.bob.id7", jwtx.IssueOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"refresh", "currency:request", "exch_rate:request"}, issued.Scope)
		require.Equal(t, int64(14*24*3600), issued.ExpiresIn())

		tok, err := validatorFor(t, issueNow).Validate(issued.Token)
		require.NoError(t, err)
		require.True(t, tok.IsRefresh())
	})

	t.Run("requested scope is prefixed", func(t *testing.T) {
		issued, err := iss.RefreshToken("currex.bob.id7", jwtx.IssueOptions{Scope: []string{"currency:request"}})
		require.NoError(t, err)
		require.Equal(t, []string{"refresh", "currency:request"}, issued.Scope)
	})

	t.Run("marker present without any scope", func(t *testing.T) {
		bare := newTestIssuer(t, func(c *jwtx.IssuerConfig) { c.Scope = nil })
		issued, err := bare.RefreshToken("currex.bob.id7", jwtx.IssueOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"refresh"}, issued.Scope)
	})
}

func TestIssuerScopeOverrides(t *testing.T) {
	t.Run("requested scope replaces default", func(t *testing.T) {
		issued, err := newTestIssuer(t, nil).AccessToken("s", jwtx.IssueOptions{Scope: []string{"currency:create"}})
		require.NoError(t, err)
		require.Equal(t, []string{"currency:create"}, issued.Payload["scope"])
	})

	t.Run("scope omitted when nothing configured", func(t *testing.T) {
		iss := newTestIssuer(t, func(c *jwtx.IssuerConfig) { c.Scope = nil })
		issued, err := iss.AccessToken("s", jwtx.IssueOptions{})
		require.NoError(t, err)
		require.NotContains(t, issued.Payload, "scope")
	})

	t.Run("audience override", func(t *testing.T) {
		issued, err := newTestIssuer(t, nil).AccessToken("s", jwtx.IssueOptions{Audience: []string{"admin_panel"}})
		require.NoError(t, err)
		require.Equal(t, []string{"admin_panel"}, issued.Payload["aud"])
	})
}

func TestIssuerOptionalClaims(t *testing.T) {
	t.Run("no jti when disabled", func(t *testing.T) {
		iss := newTestIssuer(t, func(c *jwtx.IssuerConfig) { c.AssignJTI = false })
		issued, err := iss.AccessToken("s", jwtx.IssueOptions{})
		require.NoError(t, err)
		require.Empty(t, issued.ID)
		require.NotContains(t, issued.Payload, "jti")
	})

	t.Run("jti is unique per token", func(t *testing.T) {
		iss := newTestIssuer(t, nil)
		a, err := iss.AccessToken("s", jwtx.IssueOptions{})
		require.NoError(t, err)
		b, err := iss.AccessToken("s", jwtx.IssueOptions{})
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)
	})

	t.Run("not before offset", func(t *testing.T) {
		iss := newTestIssuer(t, func(c *jwtx.IssuerConfig) { c.NotBefore = 10 * time.Second })
		issued, err := iss.AccessToken("s", jwtx.IssueOptions{})
		require.NoError(t, err)
		require.Equal(t, int64(1_700_000_011), issued.Payload["nbf"])

		tok, err := validatorFor(t, issueNow).Validate(issued.Token)
		require.NoError(t, err)
		require.Equal(t, int64(1_700_000_011), tok.NotBefore.Unix())
	})

	t.Run("sub-second not before offset stays after iat", func(t *testing.T) {
		now := time.Unix(1_700_000_000, 200_000_000).UTC()
		iss := newTestIssuer(t, func(c *jwtx.IssuerConfig) {
			c.NotBefore = 500 * time.Millisecond
			c.Now = func() time.Time { return now }
		})
		for _, issue := range []func(string, jwtx.IssueOptions) (*jwtx.Issued, error){iss.AccessToken, iss.RefreshToken} {
			issued, err := issue("s", jwtx.IssueOptions{})
			require.NoError(t, err)
			require.Equal(t, int64(1_700_000_001), issued.Payload["iat"])
			require.Equal(t, int64(1_700_000_002), issued.Payload["nbf"])

			_, err = validatorFor(t, now.Add(2*time.Second)).Validate(issued.Token)
			require.NoError(t, err)
		}
	})

	t.Run("not before offset must leave room before expiry", func(t *testing.T) {
		for _, nbf := range []time.Duration{-time.Second, 30 * time.Minute, 30*time.Minute - time.Second, 30*time.Minute - 1500*time.Millisecond} {
			_, err := jwtx.NewIssuer(jwtx.IssuerConfig{
				Algorithm: jwtx.HS256,
				Key:       hmacSecret,
				AccessTTL: 30 * time.Minute,
				NotBefore: nbf,
			})
			require.Error(t, err, "offset %s", nbf)
		}
	})

	t.Run("private claims are merged", func(t *testing.T) {
		iss := newTestIssuer(t, func(c *jwtx.IssuerConfig) {
			c.PrivateClaims = map[string]any{"tenant": "eu", "tier": "free"}
		})
		issued, err := iss.AccessToken("s", jwtx.IssueOptions{
			PrivateClaims: map[string]any{"tier": "pro", "device_id": "phone"},
		})
		require.NoError(t, err)
		require.Equal(t, "eu", issued.Payload["tenant"])
		require.Equal(t, "pro", issued.Payload["tier"])

		tok, err := validatorFor(t, issueNow).Validate(issued.Token)
		require.NoError(t, err)
		require.Equal(t, "phone", tok.DeviceID)
		require.Equal(t, "pro", tok.Private["tier"])
	})

	t.Run("preset private claims dismissed", func(t *testing.T) {
		iss := newTestIssuer(t, func(c *jwtx.IssuerConfig) {
			c.PrivateClaims = map[string]any{"tenant": "eu"}
		})
		issued, err := iss.AccessToken("s", jwtx.IssueOptions{
			PrivateClaims:              map[string]any{"device_id": "phone"},
			DismissPresetPrivateClaims: true,
		})
		require.NoError(t, err)
		require.NotContains(t, issued.Payload, "tenant")
		require.Equal(t, "phone", issued.Payload["device_id"])
	})

	t.Run("private claims cannot override registered claims", func(t *testing.T) {
		issued, err := newTestIssuer(t, nil).AccessToken("s", jwtx.IssueOptions{
			PrivateClaims: map[string]any{"exp": 1},
		})
		require.NoError(t, err)
		require.Equal(t, int64(1_700_001_801), issued.Payload["exp"])
	})
}

func TestIssuedTokenExpires(t *testing.T) {
	issued, err := newTestIssuer(t, nil).AccessToken("s", jwtx.IssueOptions{})
	require.NoError(t, err)

	_, err = validatorFor(t, issued.ExpiresAt).Validate(issued.Token)
	require.NoError(t, err)

	_, err = validatorFor(t, issued.ExpiresAt.Add(time.Second)).Validate(issued.Token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestNewIssuerRejectsPublicKey(t *testing.T) {
	k := ecKey(t)
	_, err := jwtx.NewIssuer(jwtx.IssuerConfig{Algorithm: jwtx.ES256, Key: &k.PublicKey})
	require.ErrorIs(t, err, jwtx.ErrKeyType)

	iss, err := jwtx.NewIssuer(jwtx.IssuerConfig{Algorithm: jwtx.ES256, Key: k})
	require.NoError(t, err)

	issued, err := iss.AccessToken("s", jwtx.IssueOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(jwtx.DefaultAccessTokenTTL/time.Second), issued.ExpiresIn())
}
