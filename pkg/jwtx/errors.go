package jwtx

import (
	"errors"
	"fmt"
)

var (
	// Decode failures. A corrupted token never reaches signature verification.
	ErrCorrupted    = errors.New("jwtx: corrupted token")
	ErrBadSignature = errors.New("jwtx: bad token signature")

	// Claim model failures.
	ErrInvalidHeader = errors.New("jwtx: invalid token header")
	ErrInvalidClaim  = errors.New("jwtx: invalid token claim")
	ErrExpired       = errors.New("jwtx: token expired")

	// Access decision failures.
	ErrInsufficientScope = errors.New("jwtx: insufficient scope")
	ErrRefreshToken      = errors.New("jwtx: refresh token cannot access resources")

	// Key and configuration failures.
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrKeyType        = errors.New("jwtx: key does not match algorithm")
)

// ValidationError is returned when a decoded token fails the claim model.
// It keeps the raw header and payload so callers can log what was presented.
type ValidationError struct {
	Err     error
	Msg     string
	Header  map[string]any
	Payload map[string]any
}

func newValidationError(err error, msg string, header, payload map[string]any) *ValidationError {
	return &ValidationError{Err: err, Msg: msg, Header: header, Payload: payload}
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }
