package jwtx_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var claimsNow = time.Unix(1_700_000_000, 0).UTC()

func header() map[string]any {
	return map[string]any{"typ": "JWT", "alg": "HS256"}
}

func payload(mut func(p map[string]any)) map[string]any {
	p := map[string]any{
		"iss": "currex.auth",
		"sub": "currex.bob.id7",
		"iat": claimsNow.Unix() - 10,
		"exp": claimsNow.Unix() + 60,
	}
	if mut != nil {
		mut(p)
	}
	return p
}

func TestNewToken(t *testing.T) {
	tests := []struct {
		name    string
		header  map[string]any
		payload map[string]any
		wantErr error
		wantMsg string
	}{
		{name: "valid", header: header(), payload: payload(nil)},
		{
			name:    "iat one second ahead is tolerated",
			header:  header(),
			payload: payload(func(p map[string]any) { p["iat"] = claimsNow.Unix() + 1 }),
		},
		{
			name:    "iat too far ahead",
			header:  header(),
			payload: payload(func(p map[string]any) { p["iat"] = claimsNow.Unix() + 2 }),
			wantErr: jwtx.ErrInvalidClaim,
			wantMsg: "iat < now+1s",
		},
		{
			name:    "expires exactly now",
			header:  header(),
			payload: payload(func(p map[string]any) { p["exp"] = claimsNow.Unix() }),
		},
		{
			name:    "expired",
			header:  header(),
			payload: payload(func(p map[string]any) { p["exp"] = claimsNow.Unix() - 1 }),
			wantErr: jwtx.ErrExpired,
		},
		{
			name:   "iat drift is checked before expiry",
			header: header(),
			payload: payload(func(p map[string]any) {
				p["iat"] = claimsNow.Unix() + 5
				p["exp"] = claimsNow.Unix() - 5
			}),
			wantErr: jwtx.ErrInvalidClaim,
			wantMsg: "iat < now+1s",
		},
		{
			name:   "expiry is checked before ordering",
			header: header(),
			payload: payload(func(p map[string]any) {
				p["iat"] = claimsNow.Unix()
				p["exp"] = claimsNow.Unix() - 30
			}),
			wantErr: jwtx.ErrExpired,
		},
		{
			name:   "exp must follow iat",
			header: header(),
			payload: payload(func(p map[string]any) {
				p["iat"] = claimsNow.Unix()
				p["exp"] = claimsNow.Unix()
			}),
			wantErr: jwtx.ErrInvalidClaim,
			wantMsg: "exp > iat",
		},
		{
			name:    "nbf between iat and exp",
			header:  header(),
			payload: payload(func(p map[string]any) { p["nbf"] = claimsNow.Unix() - 5 }),
		},
		{
			name:    "nbf equal to iat",
			header:  header(),
			payload: payload(func(p map[string]any) { p["nbf"] = claimsNow.Unix() - 10 }),
			wantErr: jwtx.ErrInvalidClaim,
			wantMsg: "exp > nbf > iat",
		},
		{
			name:    "nbf after exp",
			header:  header(),
			payload: payload(func(p map[string]any) { p["nbf"] = claimsNow.Unix() + 120 }),
			wantErr: jwtx.ErrInvalidClaim,
			wantMsg: "exp > nbf > iat",
		},
		{
			name:    "missing sub",
			header:  header(),
			payload: payload(func(p map[string]any) { delete(p, "sub") }),
			wantErr: jwtx.ErrInvalidClaim,
		},
		{
			name:    "missing exp",
			header:  header(),
			payload: payload(func(p map[string]any) { delete(p, "exp") }),
			wantErr: jwtx.ErrInvalidClaim,
		},
		{
			name:    "scope of the wrong type",
			header:  header(),
			payload: payload(func(p map[string]any) { p["scope"] = 42 }),
			wantErr: jwtx.ErrInvalidClaim,
		},
		{
			name:    "missing typ",
			header:  map[string]any{"alg": "HS256"},
			payload: payload(nil),
			wantErr: jwtx.ErrInvalidHeader,
		},
		{
			name:    "unsupported alg",
			header:  map[string]any{"typ": "JWT", "alg": "none"},
			payload: payload(nil),
			wantErr: jwtx.ErrInvalidHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := jwtx.NewToken(tt.header, tt.payload, claimsNow)
			if tt.wantErr == nil {
				require.NoError(t, err)
				require.NotNil(t, tok)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			var verr *jwtx.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tt.payload, verr.Payload)
			require.Equal(t, tt.header, verr.Header)
			if tt.wantMsg != "" {
				require.Equal(t, tt.wantMsg, verr.Msg)
			}
		})
	}
}

func TestNewTokenFields(t *testing.T) {
	p := payload(func(p map[string]any) {
		p["aud"] = "currency_exchange_api"
		p["scope"] = "currency:request"
		p["jti"] = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
		p["device_id"] = "phone"
		p["nbf"] = claimsNow.Unix() - 5
		p["tenant"] = "eu"
	})

	tok, err := jwtx.NewToken(header(), p, claimsNow)
	require.NoError(t, err)

	require.Equal(t, jwtx.Header{Type: "JWT", Algorithm: jwtx.HS256}, tok.Header)
	require.Equal(t, "currex.auth", tok.Issuer)
	require.Equal(t, "currex.bob.id7", tok.Subject)
	require.Equal(t, []string{"currency_exchange_api"}, tok.Audience)
	require.Equal(t, []string{"currency:request"}, tok.Scope)
	require.Equal(t, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", tok.ID)
	require.Equal(t, "phone", tok.DeviceID)
	require.Equal(t, claimsNow.Add(-5*time.Second), tok.NotBefore)
	require.Equal(t, claimsNow.Add(60*time.Second), tok.ExpiresAt)
	require.Equal(t, map[string]any{"tenant": "eu"}, tok.Private)
	require.False(t, tok.IsRefresh())
}

func TestTokenRefreshMarker(t *testing.T) {
	p := payload(func(p map[string]any) {
		p["scope"] = []any{"refresh", "currency:request", "exch_rate:request"}
	})

	tok, err := jwtx.NewToken(header(), p, claimsNow)
	require.NoError(t, err)
	require.True(t, tok.IsRefresh())
	require.Equal(t, []string{"currency:request", "exch_rate:request"}, tok.RequestedScope())
	require.Equal(t, "refresh", tok.Scope[0])
}
