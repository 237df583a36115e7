package sqlbase

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/store"
	"github.com/google/uuid"
)

type tokenStatesRepo struct {
	c conn
}

const tokenStateColumns = `id, type, revoked, device_id, expiry_date, user_id, created_at`

func (r *tokenStatesRepo) CreateTokenState(ctx context.Context, s domain.TokenState) error {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return fmt.Errorf("sqlbase: token state id %q: %w", s.ID, err)
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.c.exec(ctx,
		`INSERT INTO token_states (`+tokenStateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), string(s.Type), s.Revoked, s.DeviceID, s.ExpiresAt.Unix(), s.UserID, createdAt.Unix(),
	)
	return err
}

func (r *tokenStatesRepo) GetTokenState(ctx context.Context, id string) (domain.TokenState, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.TokenState{}, store.ErrNotFound
	}
	row := r.c.queryRow(ctx, `SELECT `+tokenStateColumns+` FROM token_states WHERE id = ?`, parsed.String())
	s, err := scanTokenState(row)
	if err != nil {
		return domain.TokenState{}, r.c.mapErr(err)
	}
	return s, nil
}

func (r *tokenStatesRepo) ListActiveTokenStates(ctx context.Context, userID int64) ([]domain.TokenState, error) {
	return r.list(ctx,
		`SELECT `+tokenStateColumns+` FROM token_states
		 WHERE user_id = ? AND revoked = FALSE ORDER BY created_at, id`,
		userID)
}

func (r *tokenStatesRepo) ListActiveTokenStatesForDevice(
	ctx context.Context,
	userID int64,
	deviceID string,
) ([]domain.TokenState, error) {
	return r.list(ctx,
		`SELECT `+tokenStateColumns+` FROM token_states
		 WHERE user_id = ? AND device_id = ? AND revoked = FALSE ORDER BY created_at, id`,
		userID, deviceID)
}

func (r *tokenStatesRepo) ListActiveTokenStatesByIDs(
	ctx context.Context,
	userID int64,
	ids []string,
) ([]domain.TokenState, error) {
	canonical := canonicalIDs(ids)
	if len(canonical) == 0 {
		return []domain.TokenState{}, nil
	}

	args := make([]any, 0, len(canonical)+1)
	args = append(args, userID)
	for _, id := range canonical {
		args = append(args, id)
	}
	return r.list(ctx,
		`SELECT `+tokenStateColumns+` FROM token_states
		 WHERE user_id = ? AND revoked = FALSE AND id IN (`+placeholders(len(canonical))+`)
		 ORDER BY created_at, id`,
		args...)
}

func (r *tokenStatesRepo) RevokeTokenStates(ctx context.Context, ids []string) error {
	canonical := canonicalIDs(ids)
	if len(canonical) == 0 {
		return nil
	}
	args := make([]any, 0, len(canonical))
	for _, id := range canonical {
		args = append(args, id)
	}
	_, err := r.c.exec(ctx,
		`UPDATE token_states SET revoked = TRUE WHERE id IN (`+placeholders(len(canonical))+`)`,
		args...)
	return err
}

func (r *tokenStatesRepo) DeleteExpiredTokenStates(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.exec(ctx, `DELETE FROM token_states WHERE expiry_date < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *tokenStatesRepo) list(ctx context.Context, query string, args ...any) ([]domain.TokenState, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TokenState{}
	for rows.Next() {
		s, err := scanTokenState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanTokenState(row rowScanner) (domain.TokenState, error) {
	var (
		s                    domain.TokenState
		typ                  string
		expiresAt, createdAt int64
	)
	if err := row.Scan(&s.ID, &typ, &s.Revoked, &s.DeviceID, &expiresAt, &s.UserID, &createdAt); err != nil {
		return domain.TokenState{}, err
	}
	s.Type = domain.TokenType(typ)
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return s, nil
}

// canonicalIDs drops ids that are not UUIDs and normalises the rest to
// their lower-case hyphenated form, removing duplicates.
func canonicalIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		s := id.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
