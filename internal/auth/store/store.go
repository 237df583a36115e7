package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so a Tx can
// hand out the same repositories bound to the transaction, and so nobody
// starts a transaction inside a transaction by accident.
type Store interface {
	Users() Users
	TokenStates() TokenStates

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByUsername is used by every Basic or form credential check.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts u and returns the id the database assigned.
	// A taken username yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// UpdatePasswordHash replaces the stored hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error

	// SetActive flips is_active.
	SetActive(ctx context.Context, userID int64, active bool) error
}

// TokenStates is the revocation store: one row per issued token.
type TokenStates interface {
	// CreateTokenState records an issued token. A duplicate id yields
	// ErrAlreadyExists.
	CreateTokenState(ctx context.Context, s domain.TokenState) error

	// GetTokenState looks a token up by its jti.
	GetTokenState(ctx context.Context, id string) (domain.TokenState, error)

	// ListActiveTokenStates returns the user's non-revoked tokens.
	ListActiveTokenStates(ctx context.Context, userID int64) ([]domain.TokenState, error)

	// ListActiveTokenStatesForDevice returns the user's non-revoked tokens
	// issued to deviceID.
	ListActiveTokenStatesForDevice(ctx context.Context, userID int64, deviceID string) ([]domain.TokenState, error)

	// ListActiveTokenStatesByIDs returns the user's non-revoked tokens whose
	// id is in ids. Ids that are not UUIDs never match.
	ListActiveTokenStatesByIDs(ctx context.Context, userID int64, ids []string) ([]domain.TokenState, error)

	// RevokeTokenStates sets revoked on every listed id. Revoking an
	// already revoked or unknown id is not an error.
	RevokeTokenStates(ctx context.Context, ids []string) error

	// DeleteExpiredTokenStates removes rows whose expiry is before now and
	// returns how many were deleted.
	DeleteExpiredTokenStates(ctx context.Context, now time.Time) (int64, error)
}
