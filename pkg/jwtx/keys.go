package jwtx

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// LoadKey reads key material for alg from path. Files ending in .json are
// parsed as a JWK or a JWK set (first key wins), everything else as PEM,
// DER, or for HS256 a raw secret.
func LoadKey(alg Algorithm, path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwtx: read key %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseJWK(alg, data)
	}
	return parseKeyBytes(alg, data)
}

// ParseKeyData builds key material for alg from in-memory data. Strings and
// byte slices are treated as PEM/DER/raw secrets, maps as a JWK, and already
// parsed keys are checked against alg and returned.
func ParseKeyData(alg Algorithm, data any) (any, error) {
	switch v := data.(type) {
	case string:
		return parseKeyBytes(alg, []byte(v))
	case []byte:
		return parseKeyBytes(alg, v)
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("jwtx: encode jwk: %w", err)
		}
		return parseJWK(alg, raw)
	case *rsa.PrivateKey, *rsa.PublicKey, *ecdsa.PrivateKey, *ecdsa.PublicKey:
		if err := checkKeyType(alg, v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key data %T", ErrKeyType, data)
	}
}

func parseJWK(alg Algorithm, data []byte) (any, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		var set jose.JSONWebKeySet
		if setErr := json.Unmarshal(data, &set); setErr != nil || len(set.Keys) == 0 {
			return nil, fmt.Errorf("jwtx: parse jwk: %w", err)
		}
		jwk = set.Keys[0]
	}

	if jwk.Algorithm != "" && jwk.Algorithm != string(alg) {
		return nil, fmt.Errorf("%w: jwk is for %s, want %s", ErrKeyType, jwk.Algorithm, alg)
	}
	if err := checkKeyType(alg, jwk.Key); err != nil {
		return nil, err
	}
	return jwk.Key, nil
}

func parseKeyBytes(alg Algorithm, data []byte) (any, error) {
	switch alg {
	case HS256:
		secret := bytes.TrimSpace(data)
		if len(secret) == 0 {
			return nil, fmt.Errorf("%w: empty HS256 secret", ErrKeyType)
		}
		return secret, nil

	case RS256:
		if block, _ := pem.Decode(data); block != nil {
			if k, err := jwt.ParseRSAPrivateKeyFromPEM(data); err == nil {
				return k, nil
			}
			if k, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
				return k, nil
			}
			return nil, fmt.Errorf("%w: PEM block %q is not an RSA key", ErrKeyType, block.Type)
		}
		return parseDER(alg, data)

	case ES256:
		if block, _ := pem.Decode(data); block != nil {
			if k, err := jwt.ParseECPrivateKeyFromPEM(data); err == nil {
				return k, checkKeyType(alg, k)
			}
			if k, err := jwt.ParseECPublicKeyFromPEM(data); err == nil {
				return k, checkKeyType(alg, k)
			}
			return nil, fmt.Errorf("%w: PEM block %q is not an EC key", ErrKeyType, block.Type)
		}
		return parseDER(alg, data)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, string(alg))
	}
}

func parseDER(alg Algorithm, der []byte) (any, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, checkKeyType(alg, k)
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, checkKeyType(alg, k)
	}
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return k, checkKeyType(alg, k)
	}
	if k, err := x509.ParsePKIXPublicKey(der); err == nil {
		return k, checkKeyType(alg, k)
	}
	if k, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return k, checkKeyType(alg, k)
	}
	return nil, fmt.Errorf("%w: unrecognised key encoding for %s", ErrKeyType, alg)
}

func checkKeyType(alg Algorithm, key any) error {
	ok := false
	switch k := key.(type) {
	case []byte:
		ok = alg == HS256 && len(k) > 0
	case *rsa.PrivateKey, *rsa.PublicKey:
		ok = alg == RS256
	case *ecdsa.PrivateKey:
		ok = alg == ES256 && k.Curve == elliptic.P256()
	case *ecdsa.PublicKey:
		ok = alg == ES256 && k.Curve == elliptic.P256()
	}
	if !ok {
		return fmt.Errorf("%w: %T cannot be used with %s", ErrKeyType, key, alg)
	}
	return nil
}

// signingKey returns key if it can produce signatures for alg.
func signingKey(alg Algorithm, key any) (any, error) {
	if err := checkKeyType(alg, key); err != nil {
		return nil, err
	}
	switch key.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return nil, fmt.Errorf("%w: %s signing needs a private key", ErrKeyType, alg)
	}
	return key, nil
}

// VerificationKey derives the key used to check signatures for alg. Private
// keys yield their public half; HS256 secrets are returned unchanged.
func VerificationKey(alg Algorithm, key any) (any, error) {
	if err := checkKeyType(alg, key); err != nil {
		return nil, err
	}
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	case *ecdsa.PrivateKey:
		return &k.PublicKey, nil
	}
	return key, nil
}
