package sqlbase

import (
	"context"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/store"
)

type usersRepo struct {
	c conn
}

const userColumns = `id, username, password_hash, category, is_active, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scan(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return r.scan(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := time.Now().Unix()
	var id int64
	err := r.c.queryRow(ctx,
		`INSERT INTO users (username, password_hash, category, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Username, u.PasswordHash, string(u.Category), u.IsActive, now, now,
	).Scan(&id)
	if err != nil {
		return 0, r.c.mapErr(err)
	}
	return id, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error {
	return r.update(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().Unix(), userID)
}

func (r *usersRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	return r.update(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().Unix(), userID)
}

func (r *usersRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.c.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *usersRepo) scan(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		category             string
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &category, &u.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, r.c.mapErr(err)
	}
	u.Category = domain.Category(category)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return u, nil
}
