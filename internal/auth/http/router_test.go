package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/currex/internal/auth/http"
	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/currex/pkg/authsdk"
	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/aussiebroadwan/currex/pkg/httpx"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const password = "correct-horse"

type testEnv struct {
	srv    *httptest.Server
	client *authsdk.SDKClient
	users  *service.UserService
	store  *sqlite.Store
}

// newTestEnv serves the full router over in-memory sqlite. Rate limiting is
// off unless limits are given.
func newTestEnv(t *testing.T, limits ...authhttp.RateLimits) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	secret := []byte("router-tests-shared-hmac-secret")
	scopes := domain.DefaultScopeRegistry()
	issuers, err := service.NewIssuerRegistry(service.IssuerSettings{
		Algorithm:  jwtx.HS256,
		Key:        secret,
		Issuer:     "currex.test",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: time.Hour,
	}, scopes)
	require.NoError(t, err)
	validator, err := jwtx.NewValidator(jwtx.HS256, secret, time.Now)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	users := &service.UserService{
		Store:   st,
		Hasher:  cryptox.NewHasher("pepper"),
		Policy:  service.NewCredentialPolicy(5, 8),
		Metrics: m,
	}

	logger := slog.New(slog.DiscardHandler)
	jwks, err := jwtx.PublicKeySet(jwtx.HS256, secret)
	require.NoError(t, err)

	r := authhttp.NewRouter(jwks, true, "test", st, logger)
	r.UserService = users
	r.Scopes = scopes
	r.Metrics = m
	r.TokenService = &service.TokenService{
		Users:         users,
		Store:         st,
		Issuers:       issuers,
		Scopes:        scopes,
		Validator:     validator,
		Metrics:       m,
		SubjectPrefix: "currex.test",
	}
	r.RateLimits = authhttp.RateLimits{}
	if len(limits) > 0 {
		r.RateLimits = limits[0]
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL)
	client.CheckScopes = false
	return &testEnv{srv: srv, client: client, users: users, store: st}
}

func (e *testEnv) user(t *testing.T, username string, c domain.Category) domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), username, password, c)
	require.NoError(t, err)
	return u
}

func (e *testEnv) gain(t *testing.T, username, device string) *authsdk.TokenResponse {
	t.Helper()
	pair, err := e.client.Gain(context.Background(), authsdk.GainRequest{
		Username: username, Password: password, DeviceID: device,
	})
	require.NoError(t, err)
	return pair
}

func (e *testEnv) bearerGet(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func requireAPIError(t *testing.T, err error, status int, desc string) {
	t.Helper()
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	require.Equal(t, status, apiErr.StatusCode)
	if desc != "" {
		require.Equal(t, desc, apiErr.Description)
	}
}

func TestGainEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "bob_1", domain.CategoryAPIClient)
	gone := env.user(t, "gone_1", domain.CategoryAPIClient)
	require.NoError(t, env.store.Users().SetActive(ctx, gone.ID, false))

	pair := env.gain(t, "bob_1", "phone")
	require.Equal(t, "bearer", pair.TokenType)
	require.Equal(t, int64(1800), pair.ExpiresIn)
	require.Contains(t, pair.Scope, domain.ScopeCurrencyRequest)

	tests := []struct {
		name   string
		req    authsdk.GainRequest
		status int
		desc   string
	}{
		{"unknown user", authsdk.GainRequest{Username: "nobody", Password: password}, http.StatusUnauthorized, "User not found"},
		{"wrong password", authsdk.GainRequest{Username: "bob_1", Password: "wrong-password"}, http.StatusUnauthorized, "Incorrect username or password"},
		{"inactive", authsdk.GainRequest{Username: "gone_1", Password: password}, http.StatusForbidden, "User is not active"},
		{"missing password", authsdk.GainRequest{Username: "bob_1"}, http.StatusBadRequest, ""},
		{"scope outside category", authsdk.GainRequest{Username: "bob_1", Password: password, Scope: []string{domain.ScopeCurrencyDelete}}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Gain(ctx, tt.req)
			requireAPIError(t, err, tt.status, tt.desc)
		})
	}

	t.Run("wrong content type", func(t *testing.T) {
		resp, err := env.srv.Client().Post(env.srv.URL+"/tokens/gain", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "bob_1", domain.CategoryAPIClient)
	env.user(t, "alice", domain.CategoryAPIClient)

	first := env.gain(t, "bob_1", "phone")

	second, err := env.client.Refresh(ctx, "bob_1", password, first.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, first.Scope, second.Scope)

	t.Run("owner mismatch", func(t *testing.T) {
		_, err := env.client.Refresh(ctx, "alice", password, second.RefreshToken)
		requireAPIError(t, err, http.StatusForbidden, "Token owner does not match with client from request")
	})

	t.Run("access token", func(t *testing.T) {
		_, err := env.client.Refresh(ctx, "bob_1", password, second.AccessToken)
		requireAPIError(t, err, http.StatusBadRequest, "Invalid token")
	})

	t.Run("corrupted token", func(t *testing.T) {
		_, err := env.client.Refresh(ctx, "bob_1", password, "not-a-token")
		requireAPIError(t, err, http.StatusBadRequest, "Corrupted token")
	})

	t.Run("bad signature", func(t *testing.T) {
		parts := strings.Split(second.RefreshToken, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, err := env.client.Refresh(ctx, "bob_1", password, strings.Join(parts, "."))
		requireAPIError(t, err, http.StatusBadRequest, "Bad token signature")
	})

	t.Run("missing basic auth", func(t *testing.T) {
		form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {second.RefreshToken}}
		resp, err := env.srv.Client().PostForm(env.srv.URL+"/tokens/refresh", form)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")
	})

	t.Run("wrong grant type", func(t *testing.T) {
		form := url.Values{"grant_type": {"password"}, "refresh_token": {second.RefreshToken}}
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/tokens/refresh", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth("bob_1", password)
		resp, err := env.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("replay revokes the device", func(t *testing.T) {
		_, err := env.client.Refresh(ctx, "bob_1", password, first.RefreshToken)
		requireAPIError(t, err, http.StatusForbidden, "Revoked token. Authentication process should be repeated.")

		resp := env.bearerGet(t, "/users/me", second.AccessToken)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error_description="revoked token"`)
	})
}

func TestRevokeEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "bob_1", domain.CategoryAPIClient)

	phone := env.gain(t, "bob_1", "phone")
	env.gain(t, "bob_1", "laptop")

	revoked, err := env.client.Revoke(ctx, "bob_1", password)
	require.NoError(t, err)
	require.Len(t, revoked, 4)

	revoked, err = env.client.Revoke(ctx, "bob_1", password)
	require.NoError(t, err)
	require.Empty(t, revoked)

	resp := env.bearerGet(t, "/users/me", phone.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err = env.client.Revoke(ctx, "bob_1", "wrong-password")
	requireAPIError(t, err, http.StatusUnauthorized, "Incorrect username or password")
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.client.Register(ctx, "carol", password, password)
	require.NoError(t, err)
	require.Equal(t, authsdk.UserResponse{ID: u.ID, Username: "carol", Category: "API_CLIENT", IsActive: true}, *u)

	var verr *authsdk.ValidationErrorResponse

	_, err = env.client.Register(ctx, "carol", password, password)
	require.True(t, errors.As(err, &verr))
	require.Equal(t, http.StatusConflict, verr.StatusCode)
	require.Equal(t, []string{"Username already in use"}, verr.Errors["username"])

	_, err = env.client.Register(ctx, "dave_1", password, "other-password")
	require.True(t, errors.As(err, &verr))
	require.Equal(t, http.StatusBadRequest, verr.StatusCode)
	require.Equal(t, []string{"Passwords do not match"}, verr.Errors["password"])

	_, err = env.client.Register(ctx, "d.v", "a b", "a b")
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors["username"], 2)
	require.Len(t, verr.Errors["password"], 2)
}

func TestProtectedEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	bob := env.user(t, "bob_1", domain.CategoryAPIClient)
	env.user(t, "root_1", domain.CategoryAdmin)

	client := env.gain(t, "bob_1", "phone")
	admin := env.gain(t, "root_1", "desk")
	byID := "/admin/users/" + strconv.FormatInt(bob.ID, 10)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		auth   string
	}{
		{"me", "/users/me", client.AccessToken, http.StatusOK, ""},
		{"scopes", "/scopes", client.AccessToken, http.StatusOK, ""},
		{"me with refresh token", "/users/me", client.RefreshToken, http.StatusForbidden, "insufficient_scope"},
		{"me with garbage", "/users/me", "garbage", http.StatusUnauthorized, `error_description="corrupted token"`},
		{"admin lookup without all", byID, client.AccessToken, http.StatusForbidden, "insufficient_scope"},
		{"admin lookup", byID, admin.AccessToken, http.StatusOK, ""},
		{"admin lookup unknown id", "/admin/users/9999", admin.AccessToken, http.StatusNotFound, ""},
		{"admin lookup bad id", "/admin/users/abc", admin.AccessToken, http.StatusBadRequest, ""},
		{"admin search", "/admin/users/search?username=bob_1", admin.AccessToken, http.StatusOK, ""},
		{"admin search missing username", "/admin/users/search", admin.AccessToken, http.StatusBadRequest, ""},
		{"admin refresh token", byID, admin.RefreshToken, http.StatusForbidden, "insufficient_scope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.bearerGet(t, tt.path, tt.token)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.auth != "" {
				require.Contains(t, resp.Header.Get("WWW-Authenticate"), tt.auth)
			}
		})
	}

	t.Run("missing token", func(t *testing.T) {
		resp, err := env.srv.Client().Get(env.srv.URL + "/users/me")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.True(t, strings.HasPrefix(resp.Header.Get("WWW-Authenticate"), "Bearer"))
	})

	t.Run("session helpers", func(t *testing.T) {
		session := env.client.NewSessionFromTokens("root_1", password, admin)
		users, err := session.SearchUsers(context.Background(), "bob_1")
		require.NoError(t, err)
		require.Len(t, users.Users, 1)
		require.Equal(t, bob.ID, users.Users[0].ID)

		none, err := session.SearchUsers(context.Background(), "nobody")
		require.NoError(t, err)
		require.Empty(t, none.Users)

		scopes, err := session.ListScopes(context.Background())
		require.NoError(t, err)
		require.Len(t, scopes.Scopes, len(domain.DefaultScopeRegistry().Names()))
	})
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	live, err := env.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := env.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)

	jwks, err := env.client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Empty(t, jwks.Keys)

	resp, err := env.srv.Client().Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `path="GET /readyz"`)
}

func TestReadyzDegraded(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	_, err := env.client.GetReadiness(context.Background())
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestProtectedEndpointsLimitBeforeAuthentication(t *testing.T) {
	t.Parallel()
	once := httpx.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}
	env := newTestEnv(t, authhttp.RateLimits{Lenient: once, Moderate: once})

	for _, path := range []string{"/users/me", "/admin/users/search?username=bob_1"} {
		t.Run(path, func(t *testing.T) {
			resp := env.bearerGet(t, path, "garbage.bearer.token")
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			// The second unauthenticated request is turned away before the
			// token is looked at.
			resp = env.bearerGet(t, path, "garbage.bearer.token")
			require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
			require.Empty(t, resp.Header.Get("WWW-Authenticate"))
		})
	}
}
