package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Decoded is a token whose signature has been verified but whose claims have
// not been checked yet.
type Decoded struct {
	Header  map[string]any
	Payload map[string]any
}

// Encode signs payload with key using the algorithm named in h.
func Encode(h Header, payload map[string]any, key any) (string, error) {
	method, err := h.Algorithm.method()
	if err != nil {
		return "", err
	}
	sk, err := signingKey(h.Algorithm, key)
	if err != nil {
		return "", err
	}

	claims := make(jwt.MapClaims, len(payload))
	for k, v := range payload {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(method, claims)
	if h.Type != "" {
		tok.Header["typ"] = h.Type
	}

	signed, err := tok.SignedString(sk)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature of raw against key and returns its header and
// payload. Only the listed algorithms are accepted; with none listed, the
// algorithm is inferred from the key. Temporal claims are not checked here.
func Decode(raw string, key any, algs ...Algorithm) (*Decoded, error) {
	if len(algs) == 0 {
		algs = algorithmsFor(key)
	}
	names := make([]string, 0, len(algs))
	for _, a := range algs {
		names = append(names, string(a))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(names),
		jwt.WithoutClaimsValidation(),
		jwt.WithJSONNumber(),
	)

	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		alg, _ := t.Header["alg"].(string)
		return VerificationKey(Algorithm(alg), key)
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	return &Decoded{Header: tok.Header, Payload: claims}, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
}

func algorithmsFor(key any) []Algorithm {
	for _, a := range []Algorithm{HS256, RS256, ES256} {
		if checkKeyType(a, key) == nil {
			return []Algorithm{a}
		}
	}
	return nil
}
