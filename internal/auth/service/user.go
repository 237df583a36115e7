package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/aussiebroadwan/currex/internal/auth/store"
	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

type UserService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	Policy  *CredentialPolicy
	Metrics *metrics.Metrics
}

// RegisterRequest is a self-service client registration.
type RegisterRequest struct {
	Username  string
	Password1 string
	Password2 string
}

// Authenticate checks a username and password. The user must exist
// (ErrUserNotFound), be active (ErrUserInactive) and match the password
// (ErrInvalidCredentials), checked in that order.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.CredentialCheck("not_found")
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if !u.IsActive {
		s.Metrics.CredentialCheck("inactive")
		l.Info("inactive user attempted to authenticate", slog.String("username", u.Username))
		return domain.User{}, ErrUserInactive
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		s.Metrics.CredentialCheck("bad_password")
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("password verification failed", slog.String("username", u.Username), slog.Any("error", err))
		}
		return domain.User{}, ErrInvalidCredentials
	}
	s.Metrics.CredentialCheck("success")

	if s.Hasher.NeedsRehash(u.PasswordHash) {
		if hash, err := s.Hasher.Hash(password); err == nil {
			if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				l.Warn("failed to upgrade password hash", slog.Int64("user_id", u.ID), slog.Any("error", err))
			} else {
				u.PasswordHash = hash
			}
		}
	}

	return u, nil
}

// Register creates an active API_CLIENT. Policy failures come back as
// ValidationErrors, a taken username as ErrUserExists.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	if req.Password1 != req.Password2 {
		s.Metrics.Registration("invalid")
		return domain.User{}, ValidationErrors{FieldPassword: {"Passwords do not match"}}
	}

	u, err := s.CreateUser(ctx, req.Username, req.Password1, domain.CategoryAPIClient)
	switch {
	case err == nil:
		s.Metrics.Registration("created")
	case errors.Is(err, ErrUserExists):
		s.Metrics.Registration("conflict")
	default:
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			s.Metrics.Registration("invalid")
		}
	}
	return u, err
}

// CreateUser validates the credentials against the policy, hashes the
// password and stores an active user of category c.
func (s *UserService) CreateUser(
	ctx context.Context,
	username, password string,
	c domain.Category,
) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if verrs := s.Policy.Validate(map[string]string{
		FieldUsername: username,
		FieldPassword: password,
	}); verrs != nil {
		l.Info("rejected user credentials", slog.String("username", username), slog.Any("errors", verrs))
		return domain.User{}, verrs
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		Username:     username,
		PasswordHash: hash,
		Category:     c,
		IsActive:     true,
	}
	u.ID, err = s.Store.Users().CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}

	l.Info("user created",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
		slog.String("category", string(c)),
	)
	return s.Store.Users().GetUserByID(ctx, u.ID)
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// GetUserByUsername fetches a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}
