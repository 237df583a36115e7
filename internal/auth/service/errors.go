package service

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrUserInactive        = errors.New("user_inactive")
	ErrUserExists          = errors.New("user_exists")
	ErrInvalidScope        = errors.New("invalid_scope")
	ErrCategoryNotIssuable = errors.New("category_not_issuable")
	ErrNotRefreshToken     = errors.New("not_refresh_token")
	ErrOwnerMismatch       = errors.New("owner_mismatch")
	ErrTokenRevoked        = errors.New("token_revoked")
	ErrUnrecognizedToken   = errors.New("unrecognized_token")
)
