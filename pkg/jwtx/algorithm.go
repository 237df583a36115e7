package jwtx

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is a supported JWS signing algorithm.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	RS256 Algorithm = "RS256"
	ES256 Algorithm = "ES256"
)

// ParseAlgorithm accepts the algorithm name in any case.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToUpper(strings.TrimSpace(s))); a {
	case HS256, RS256, ES256:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlg, s)
	}
}

// Symmetric reports whether signing and verification share one secret.
func (a Algorithm) Symmetric() bool { return a == HS256 }

func (a Algorithm) String() string { return string(a) }

func (a Algorithm) method() (jwt.SigningMethod, error) {
	switch a {
	case HS256:
		return jwt.SigningMethodHS256, nil
	case RS256:
		return jwt.SigningMethodRS256, nil
	case ES256:
		return jwt.SigningMethodES256, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, string(a))
	}
}
