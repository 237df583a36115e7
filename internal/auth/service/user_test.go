package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, service.RegisterRequest{
		Username: "carol", Password1: testPassword, Password2: testPassword,
	})
	require.NoError(t, err)
	require.Positive(t, u.ID)
	require.Equal(t, domain.CategoryAPIClient, u.Category)
	require.True(t, u.IsActive)
	require.NotEqual(t, testPassword, u.PasswordHash)

	got, err := f.users.Authenticate(ctx, "carol", testPassword)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.users.Register(ctx, service.RegisterRequest{
			Username: "carol", Password1: testPassword, Password2: testPassword,
		})
		require.ErrorIs(t, err, service.ErrUserExists)
	})

	t.Run("passwords differ", func(t *testing.T) {
		_, err := f.users.Register(ctx, service.RegisterRequest{
			Username: "dave_1", Password1: testPassword, Password2: testPassword + "!",
		})
		var verrs service.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		require.Equal(t, service.ValidationErrors{"password": {"Passwords do not match"}}, verrs)

		_, err = f.users.GetUserByUsername(ctx, "dave_1")
		require.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("policy failures are collected", func(t *testing.T) {
		_, err := f.users.Register(ctx, service.RegisterRequest{
			Username: "e.v", Password1: "a b", Password2: "a b",
		})
		var verrs service.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		require.Len(t, verrs["username"], 2)
		require.Len(t, verrs["password"], 2)
	})
}

func TestCredentialPolicy(t *testing.T) {
	p := service.NewCredentialPolicy(5, 8)

	tests := []struct {
		name   string
		fields map[string]string
		want   service.ValidationErrors
	}{
		{
			name:   "acceptable",
			fields: map[string]string{"username": "bob_1-x", "password": "s3cr3t-pass"},
		},
		{
			name:   "short username",
			fields: map[string]string{"username": "bob"},
			want:   service.ValidationErrors{"username": {"Required minimum username length is 5."}},
		},
		{
			name:   "dot in username",
			fields: map[string]string{"username": "bob.smith"},
			want:   service.ValidationErrors{"username": {"Username may contain only letters, digits, '_' and '-'."}},
		},
		{
			name:   "non ascii username",
			fields: map[string]string{"username": "bóbbie"},
			want:   service.ValidationErrors{"username": {"Username may contain only letters, digits, '_' and '-'."}},
		},
		{
			name:   "whitespace in password",
			fields: map[string]string{"password": "long enough"},
			want:   service.ValidationErrors{"password": {"Whitespace characters are not allowed in password."}},
		},
		{
			name:   "short password",
			fields: map[string]string{"password": "short"},
			want:   service.ValidationErrors{"password": {"Required minimum password length is 8."}},
		},
		{
			name:   "unknown fields are ignored",
			fields: map[string]string{"email": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Validate(tt.fields)
			require.Equal(t, tt.want, got)
			if tt.want != nil {
				require.True(t, strings.HasPrefix(got.Error(), "validation failed: "))
			}
		})
	}
}

func TestAuthenticateUpgradesBcryptHash(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := f.store.Users().CreateUser(ctx, domain.User{
		Username:     "legacy",
		PasswordHash: string(legacy),
		Category:     domain.CategoryAPIClient,
		IsActive:     true,
	})
	require.NoError(t, err)

	_, err = f.users.Authenticate(ctx, "legacy", "not-the-password")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	u, err := f.users.Authenticate(ctx, "legacy", testPassword)
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))

	stored, err := f.users.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, u.PasswordHash, stored.PasswordHash)

	_, err = f.users.Authenticate(ctx, "legacy", testPassword)
	require.NoError(t, err)
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "frank", domain.CategoryManager)

	got, err := f.users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "frank", got.Username)
	require.Equal(t, domain.CategoryManager, got.Category)

	_, err = f.users.GetUserByID(ctx, u.ID+100)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}
