package jwtx

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// NewJWK wraps key as a signing JWK for alg. The key id is the RFC 7638
// thumbprint of the public half, so private and public forms share it.
// Symmetric secrets use a SHA-256 digest of the secret instead.
func NewJWK(alg Algorithm, key any) (jose.JSONWebKey, error) {
	if err := checkKeyType(alg, key); err != nil {
		return jose.JSONWebKey{}, err
	}

	jwk := jose.JSONWebKey{Key: key, Algorithm: string(alg), Use: "sig"}

	var thumb []byte
	if secret, ok := key.([]byte); ok {
		sum := sha256.Sum256(secret)
		thumb = sum[:]
	} else {
		pub := jwk.Public()
		var err error
		if thumb, err = pub.Thumbprint(crypto.SHA256); err != nil {
			return jose.JSONWebKey{}, fmt.Errorf("jwtx: jwk thumbprint: %w", err)
		}
	}
	jwk.KeyID = base64.RawURLEncoding.EncodeToString(thumb)
	return jwk, nil
}

// PublicKeySet returns the verification keys clients may use to check
// tokens. Symmetric secrets are never published, so HS256 yields an empty set.
func PublicKeySet(alg Algorithm, key any) (jose.JSONWebKeySet, error) {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	if alg.Symmetric() {
		return set, nil
	}

	pub, err := VerificationKey(alg, key)
	if err != nil {
		return set, err
	}
	jwk, err := NewJWK(alg, pub)
	if err != nil {
		return set, err
	}
	set.Keys = append(set.Keys, jwk)
	return set, nil
}

// MarshalJWK encodes key as an indented JWK document.
func MarshalJWK(alg Algorithm, key any) ([]byte, error) {
	jwk, err := NewJWK(alg, key)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(jwk, "", "  ")
}

// PublicPEM encodes the public half of an asymmetric key as a PKIX PEM block.
func PublicPEM(alg Algorithm, key any) ([]byte, error) {
	if alg.Symmetric() {
		return nil, fmt.Errorf("%w: %s has no public key", ErrKeyType, alg)
	}
	pub, err := VerificationKey(alg, key)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
