package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testPrefix   = "currex.test"
	testPassword = "correct-horse"
)

var testSecret = []byte("service-tests-shared-hmac-secret")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *sqlite.Store
	users  *service.UserService
	tokens *service.TokenService
	clock  *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &clock{now: time.Now().UTC()}
	scopes := domain.DefaultScopeRegistry()

	issuers, err := service.NewIssuerRegistry(service.IssuerSettings{
		Algorithm:  jwtx.HS256,
		Key:        testSecret,
		Issuer:     testPrefix,
		Audience:   []string{"currency_exchange_api"},
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
		Now:        clk.Now,
	}, scopes)
	require.NoError(t, err)

	validator, err := jwtx.NewValidator(jwtx.HS256, testSecret, clk.Now)
	require.NoError(t, err)

	users := &service.UserService{
		Store:  st,
		Hasher: cryptox.NewHasher("test-pepper"),
		Policy: service.NewCredentialPolicy(5, 8),
	}

	return &fixture{
		store: st,
		users: users,
		tokens: &service.TokenService{
			Users:         users,
			Store:         st,
			Issuers:       issuers,
			Scopes:        scopes,
			Validator:     validator,
			SubjectPrefix: testPrefix,
		},
		clock: clk,
	}
}

func (f *fixture) createUser(t *testing.T, username string, c domain.Category) domain.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), username, testPassword, c)
	require.NoError(t, err)
	return u
}

func (f *fixture) grant(t *testing.T, username, device string, scope ...string) *domain.TokenPair {
	t.Helper()
	pair, err := f.tokens.Grant(context.Background(), service.GrantRequest{
		Username: username,
		Password: testPassword,
		DeviceID: device,
		Scope:    scope,
	})
	require.NoError(t, err)
	return pair
}

// claims decodes a token issued by the fixture without touching the store.
func (f *fixture) claims(t *testing.T, raw string) *jwtx.Token {
	t.Helper()
	tok, err := f.tokens.Validator.Validate(raw)
	require.NoError(t, err)
	return tok
}

func (f *fixture) state(t *testing.T, raw string) domain.TokenState {
	t.Helper()
	st, err := f.store.TokenStates().GetTokenState(context.Background(), f.claims(t, raw).ID)
	require.NoError(t, err)
	return st
}
