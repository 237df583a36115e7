// Package storetest is the conformance suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Run exercises s, which must be freshly migrated and empty.
func Run(t *testing.T, s store.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, s) })
	t.Run("TokenStates", func(t *testing.T) { testTokenStates(t, s) })
	t.Run("ListByIDs", func(t *testing.T) { testListByIDs(t, s) })
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, s) })
	t.Run("WithTx", func(t *testing.T) { testWithTx(t, s) })
}

// CreateUser inserts an active user with the given name and category.
func CreateUser(t *testing.T, s store.Store, username string, cat domain.Category) domain.User {
	t.Helper()
	u := domain.User{Username: username, PasswordHash: "hash", Category: cat, IsActive: true}
	id, err := s.Users().CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	return u
}

func newState(userID int64, device string, typ domain.TokenType, expires time.Time) domain.TokenState {
	return domain.TokenState{
		ID:        uuid.NewString(),
		Type:      typ,
		DeviceID:  device,
		ExpiresAt: expires.Truncate(time.Second),
		UserID:    userID,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	bob := CreateUser(t, s, "users_bob", domain.CategoryAPIClient)
	require.Positive(t, bob.ID)

	got, err := users.GetUserByUsername(ctx, "users_bob")
	require.NoError(t, err)
	require.Equal(t, bob.ID, got.ID)
	require.Equal(t, domain.CategoryAPIClient, got.Category)
	require.True(t, got.IsActive)
	require.False(t, got.CreatedAt.IsZero())

	_, err = users.CreateUser(ctx, domain.User{Username: "users_bob", PasswordHash: "x", Category: domain.CategoryAPIClient})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = users.GetUserByUsername(ctx, "users_nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = users.GetUserByID(ctx, 1<<40)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, users.UpdatePasswordHash(ctx, bob.ID, "new-hash"))
	require.NoError(t, users.SetActive(ctx, bob.ID, false))
	got, err = users.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.False(t, got.IsActive)

	require.ErrorIs(t, users.SetActive(ctx, 1<<40, true), store.ErrNotFound)
}

func testTokenStates(t *testing.T, s store.Store) {
	ctx := context.Background()
	states := s.TokenStates()
	u := CreateUser(t, s, "states_bob", domain.CategoryAPIClient)
	exp := time.Now().Add(time.Hour)

	phoneAccess := newState(u.ID, "phone", domain.TokenTypeAccess, exp)
	phoneRefresh := newState(u.ID, "phone", domain.TokenTypeRefresh, exp)
	laptop := newState(u.ID, "laptop", domain.TokenTypeAccess, exp)
	for _, st := range []domain.TokenState{phoneAccess, phoneRefresh, laptop} {
		require.NoError(t, states.CreateTokenState(ctx, st))
	}

	err := states.CreateTokenState(ctx, phoneAccess)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := states.GetTokenState(ctx, phoneRefresh.ID)
	require.NoError(t, err)
	require.Equal(t, phoneRefresh.ID, got.ID)
	require.Equal(t, domain.TokenTypeRefresh, got.Type)
	require.Equal(t, "phone", got.DeviceID)
	require.Equal(t, u.ID, got.UserID)
	require.False(t, got.Revoked)
	require.Equal(t, phoneRefresh.ExpiresAt.Unix(), got.ExpiresAt.Unix())

	t.Run("lookup is case insensitive on uuid", func(t *testing.T) {
		got, err := states.GetTokenState(ctx, strings.ToUpper(phoneRefresh.ID))
		require.NoError(t, err)
		require.Equal(t, phoneRefresh.ID, got.ID)
	})

	t.Run("unknown and malformed ids are not found", func(t *testing.T) {
		_, err := states.GetTokenState(ctx, uuid.NewString())
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = states.GetTokenState(ctx, "not-a-uuid")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	active, err := states.ListActiveTokenStates(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 3)

	device, err := states.ListActiveTokenStatesForDevice(ctx, u.ID, "phone")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{phoneAccess.ID, phoneRefresh.ID}, domain.TokenStateIDs(device))

	require.NoError(t, states.RevokeTokenStates(ctx, domain.TokenStateIDs(device)))

	t.Run("revoke is idempotent", func(t *testing.T) {
		require.NoError(t, states.RevokeTokenStates(ctx, domain.TokenStateIDs(device)))
		require.NoError(t, states.RevokeTokenStates(ctx, nil))
		require.NoError(t, states.RevokeTokenStates(ctx, []string{"garbage", uuid.NewString()}))

		got, err := states.GetTokenState(ctx, phoneAccess.ID)
		require.NoError(t, err)
		require.True(t, got.Revoked)
	})

	device, err = states.ListActiveTokenStatesForDevice(ctx, u.ID, "phone")
	require.NoError(t, err)
	require.Empty(t, device)

	active, err = states.ListActiveTokenStates(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{laptop.ID}, domain.TokenStateIDs(active))
}

func testListByIDs(t *testing.T, s store.Store) {
	ctx := context.Background()
	states := s.TokenStates()
	alice := CreateUser(t, s, "ids_alice", domain.CategoryAPIClient)
	mallory := CreateUser(t, s, "ids_mallory", domain.CategoryAPIClient)
	exp := time.Now().Add(time.Hour)

	a1 := newState(alice.ID, domain.DeviceNone, domain.TokenTypeAccess, exp)
	a2 := newState(alice.ID, domain.DeviceNone, domain.TokenTypeRefresh, exp)
	a3 := newState(alice.ID, domain.DeviceNone, domain.TokenTypeAccess, exp)
	m1 := newState(mallory.ID, domain.DeviceNone, domain.TokenTypeAccess, exp)
	for _, st := range []domain.TokenState{a1, a2, a3, m1} {
		require.NoError(t, states.CreateTokenState(ctx, st))
	}
	require.NoError(t, states.RevokeTokenStates(ctx, []string{a3.ID}))

	got, err := states.ListActiveTokenStatesByIDs(ctx, alice.ID, []string{
		a1.ID, a2.ID, a3.ID, m1.ID, "not-a-uuid", a1.ID,
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a1.ID, a2.ID}, domain.TokenStateIDs(got))

	got, err = states.ListActiveTokenStatesByIDs(ctx, alice.ID, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func testDeleteExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	states := s.TokenStates()
	u := CreateUser(t, s, "sweep_bob", domain.CategoryAPIClient)
	now := time.Now()

	old := newState(u.ID, "d", domain.TokenTypeAccess, now.Add(-time.Hour))
	fresh := newState(u.ID, "d", domain.TokenTypeAccess, now.Add(time.Hour))
	require.NoError(t, states.CreateTokenState(ctx, old))
	require.NoError(t, states.CreateTokenState(ctx, fresh))

	n, err := states.DeleteExpiredTokenStates(ctx, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))

	_, err = states.GetTokenState(ctx, old.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = states.GetTokenState(ctx, fresh.ID)
	require.NoError(t, err)
}

func testWithTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := CreateUser(t, s, "tx_bob", domain.CategoryAPIClient)
	exp := time.Now().Add(time.Hour)

	committed := newState(u.ID, "d", domain.TokenTypeAccess, exp)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.TokenStates().CreateTokenState(ctx, committed)
	}))
	_, err := s.TokenStates().GetTokenState(ctx, committed.ID)
	require.NoError(t, err)

	rolledBack := newState(u.ID, "d", domain.TokenTypeAccess, exp)
	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.TokenStates().CreateTokenState(ctx, rolledBack))
		require.NoError(t, tx.TokenStates().RevokeTokenStates(ctx, []string{committed.ID}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.TokenStates().GetTokenState(ctx, rolledBack.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	got, err := s.TokenStates().GetTokenState(ctx, committed.ID)
	require.NoError(t, err)
	require.False(t, got.Revoked)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.Error(t, err)
}
