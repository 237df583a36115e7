package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/aussiebroadwan/currex/internal/auth/store"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
)

// TokenService runs the grant, refresh and revoke flows and authenticates
// bearer tokens for protected endpoints.
type TokenService struct {
	Users     *UserService
	Store     store.Store
	Issuers   *IssuerRegistry
	Scopes    *domain.ScopeRegistry
	Validator *jwtx.Validator
	Metrics   *metrics.Metrics

	// SubjectPrefix namespaces token subjects, "{prefix}.{username}.id{id}".
	SubjectPrefix string
}

type GrantRequest struct {
	Username string
	Password string
	DeviceID string
	// Scope narrows the category default. Empty means the default.
	Scope []string
}

type RefreshRequest struct {
	Username     string
	Password     string
	RefreshToken string
}

type RevokeRequest struct {
	Username string
	Password string
	// TokenIDs limits revocation to these jtis. Empty revokes every token
	// the user holds.
	TokenIDs []string
}

// Grant checks credentials and issues an access and refresh pair for the
// device. Every token the user already held for that device is revoked.
func (s *TokenService) Grant(ctx context.Context, req GrantRequest) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	device := req.DeviceID
	if device == "" {
		device = domain.DeviceNone
	}

	scope, err := s.checkRequestedScope(u.Category, req.Scope)
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.issuePair(u, device, scope, scope)
	if err != nil {
		return nil, err
	}

	if err := s.rotateDevice(ctx, u, device, access, refresh); err != nil {
		return nil, err
	}
	s.Metrics.TokenIssued(string(domain.TokenTypeAccess), string(u.Category), "grant")
	s.Metrics.TokenIssued(string(domain.TokenTypeRefresh), string(u.Category), "grant")

	l.Info("issued tokens",
		slog.String("username", u.Username),
		slog.String("device_id", device),
		slog.Any("scope", access.Scope),
	)
	l.Debug("generated tokens", slog.Any("access", access.Payload), slog.Any("refresh", refresh.Payload))

	return newTokenPair(access, refresh), nil
}

// Refresh exchanges a refresh token for a new pair carrying the same scope.
//
// Presenting a refresh token that was already revoked is treated as replay:
// every token of that user and device is revoked and ErrTokenRevoked is
// returned.
func (s *TokenService) Refresh(ctx context.Context, req RefreshRequest) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	tok, err := s.Validator.Validate(req.RefreshToken)
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}

	if _, ownerID, err := domain.ParseSubject(tok.Subject); err != nil || ownerID != u.ID {
		l.Warn("refresh token owner mismatch",
			slog.String("username", u.Username),
			slog.String("token_sub", tok.Subject),
		)
		s.Metrics.TokenRejected("owner_mismatch")
		return nil, ErrOwnerMismatch
	}

	if !tok.IsRefresh() {
		s.Metrics.TokenRejected("not_refresh")
		return nil, ErrNotRefreshToken
	}

	state, err := s.lookupState(ctx, tok)
	if err != nil {
		return nil, err
	}

	if state.Revoked {
		s.Metrics.ReplayDetected()
		l.Warn("revoked refresh token presented, revoking device tokens",
			slog.String("username", u.Username),
			slog.String("device_id", state.DeviceID),
			slog.String("jti", tok.ID),
		)
		if _, err := s.revokeDevice(ctx, s.Store, u, state.DeviceID, "replay"); err != nil {
			return nil, err
		}
		return nil, ErrTokenRevoked
	}

	device := state.DeviceID
	scope := tok.RequestedScope()
	access, refresh, err := s.issuePair(u, device, scope, scope)
	if err != nil {
		return nil, err
	}

	if err := s.rotateDevice(ctx, u, device, access, refresh); err != nil {
		return nil, err
	}
	s.Metrics.TokenIssued(string(domain.TokenTypeAccess), string(u.Category), "refresh")
	s.Metrics.TokenIssued(string(domain.TokenTypeRefresh), string(u.Category), "refresh")

	l.Info("refreshed tokens", slog.String("username", u.Username), slog.String("device_id", device))
	l.Debug("generated tokens", slog.Any("access", access.Payload), slog.Any("refresh", refresh.Payload))

	return newTokenPair(access, refresh), nil
}

// Revoke revokes the user's listed tokens, or all of them when no ids are
// given, and returns the ids actually revoked. Ids that are unknown, revoked
// already or owned by someone else are ignored.
func (s *TokenService) Revoke(ctx context.Context, req RevokeRequest) ([]string, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	var revoked []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var (
			states []domain.TokenState
			err    error
		)
		if len(req.TokenIDs) > 0 {
			states, err = tx.TokenStates().ListActiveTokenStatesByIDs(ctx, u.ID, req.TokenIDs)
		} else {
			states, err = tx.TokenStates().ListActiveTokenStates(ctx, u.ID)
		}
		if err != nil {
			return err
		}
		revoked = domain.TokenStateIDs(states)
		return tx.TokenStates().RevokeTokenStates(ctx, revoked)
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.TokensRevoked("user_request", len(revoked))

	l.Info("revoked tokens on request",
		slog.String("username", u.Username),
		slog.Int("requested", len(req.TokenIDs)),
		slog.Int("revoked", len(revoked)),
	)
	return revoked, nil
}

// Authenticate validates a bearer token and checks it against the
// revocation store. Store failures are returned wrapped, never read as
// "not revoked".
func (s *TokenService) Authenticate(ctx context.Context, raw string) (*jwtx.Token, error) {
	tok, err := s.Validator.Validate(raw)
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}

	state, err := s.lookupState(ctx, tok)
	if err != nil {
		return nil, err
	}
	if state.Revoked {
		s.Metrics.TokenRejected("revoked")
		return nil, ErrTokenRevoked
	}

	slogx.FromContext(ctx).Debug("token validated", slog.String("sub", tok.Subject))
	return tok, nil
}

func (s *TokenService) lookupState(ctx context.Context, tok *jwtx.Token) (domain.TokenState, error) {
	if tok.ID == "" {
		s.Metrics.TokenRejected("unrecognized")
		return domain.TokenState{}, fmt.Errorf("%w: no jti", ErrUnrecognizedToken)
	}

	state, err := s.Store.TokenStates().GetTokenState(ctx, tok.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Debug("unrecognized token", slog.String("jti", tok.ID))
			s.Metrics.TokenRejected("unrecognized")
			return domain.TokenState{}, ErrUnrecognizedToken
		}
		return domain.TokenState{}, fmt.Errorf("revocation lookup: %w", err)
	}
	return state, nil
}

// rejected logs a validation failure with the token's header and payload.
func (s *TokenService) rejected(ctx context.Context, err error) {
	s.Metrics.TokenRejected(rejectionReason(err))

	var verr *jwtx.ValidationError
	if errors.As(err, &verr) {
		slogx.FromContext(ctx).Debug("token validation problem",
			slog.String("reason", verr.Msg),
			slog.Any("header", verr.Header),
			slog.Any("payload", verr.Payload),
		)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, jwtx.ErrCorrupted):
		return "corrupted"
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	default:
		return "invalid"
	}
}

// checkRequestedScope returns requested with duplicates removed, or nil
// when nothing was requested. Every entry must be within what the category
// may hold.
func (s *TokenService) checkRequestedScope(c domain.Category, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(requested))
	for _, sc := range requested {
		if !s.Scopes.Allowed(c, sc) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScope, sc)
		}
		if !slices.Contains(out, sc) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *TokenService) issuePair(
	u domain.User,
	device string,
	accessScope, refreshScope []string,
) (access, refresh *jwtx.Issued, err error) {
	iss, err := s.Issuers.For(u.Category)
	if err != nil {
		return nil, nil, err
	}

	sub := u.Subject(s.SubjectPrefix)
	private := map[string]any{"device_id": device}

	access, err = iss.AccessToken(sub, jwtx.IssueOptions{Scope: accessScope, PrivateClaims: private})
	if err != nil {
		return nil, nil, err
	}
	refresh, err = iss.RefreshToken(sub, jwtx.IssueOptions{Scope: refreshScope, PrivateClaims: private})
	if err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}

// rotateDevice revokes the user's tokens for device and records the new
// pair in one transaction.
func (s *TokenService) rotateDevice(
	ctx context.Context,
	u domain.User,
	device string,
	access, refresh *jwtx.Issued,
) error {
	var revoked int
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := s.revokeDevice(ctx, tx, u, device, "")
		if err != nil {
			return err
		}
		revoked = n

		for _, st := range []domain.TokenState{
			newTokenState(access, domain.TokenTypeAccess, u.ID, device),
			newTokenState(refresh, domain.TokenTypeRefresh, u.ID, device),
		} {
			if err := tx.TokenStates().CreateTokenState(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Metrics.TokensRevoked("device_rotation", revoked)
	return nil
}

// revokeDevice revokes every active token of u for device through st. A
// non-empty cause is recorded in metrics right away.
func (s *TokenService) revokeDevice(
	ctx context.Context,
	st store.Store,
	u domain.User,
	device string,
	cause string,
) (int, error) {
	l := slogx.FromContext(ctx)

	states, err := st.TokenStates().ListActiveTokenStatesForDevice(ctx, u.ID, device)
	if err != nil {
		return 0, err
	}
	if len(states) == 0 {
		l.Info("no active tokens for device", slog.String("username", u.Username), slog.String("device_id", device))
		return 0, nil
	}

	if err := st.TokenStates().RevokeTokenStates(ctx, domain.TokenStateIDs(states)); err != nil {
		return 0, err
	}
	if cause != "" {
		s.Metrics.TokensRevoked(cause, len(states))
	}
	l.Info("revoked device tokens",
		slog.String("username", u.Username),
		slog.String("device_id", device),
		slog.Int("count", len(states)),
	)
	return len(states), nil
}

func newTokenState(i *jwtx.Issued, typ domain.TokenType, userID int64, device string) domain.TokenState {
	return domain.TokenState{
		ID:        i.ID,
		Type:      typ,
		DeviceID:  device,
		ExpiresAt: i.ExpiresAt,
		UserID:    userID,
		CreatedAt: i.IssuedAt,
	}
}

func newTokenPair(access, refresh *jwtx.Issued) *domain.TokenPair {
	scope := access.Scope
	if scope == nil {
		scope = []string{}
	}
	return &domain.TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "bearer",
		ExpiresIn:    access.ExpiresIn(),
		Scope:        scope,
	}
}
