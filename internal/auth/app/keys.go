package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/go-jose/go-jose/v4"
)

// signingKeys is the key material loaded at startup.
type signingKeys struct {
	alg    jwtx.Algorithm
	sign   any
	verify any
	jwks   jose.JSONWebKeySet
}

// loadSigningKeys reads the signing key and, when configured, a separate
// verification key. Keys are never generated here; use cmd/keygen.
func loadSigningKeys(cfg Config, logger *slog.Logger) (*signingKeys, error) {
	alg, err := jwtx.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	sign, err := jwtx.LoadKey(alg, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	var verify any
	if cfg.PublicKeyPath != "" && !alg.Symmetric() {
		if verify, err = jwtx.LoadKey(alg, cfg.PublicKeyPath); err != nil {
			return nil, fmt.Errorf("failed to load verification key: %w", err)
		}
	} else if verify, err = jwtx.VerificationKey(alg, sign); err != nil {
		return nil, fmt.Errorf("failed to derive verification key: %w", err)
	}

	jwks, err := jwtx.PublicKeySet(alg, verify)
	if err != nil {
		return nil, fmt.Errorf("failed to build key set: %w", err)
	}

	logger.Info("signing key loaded",
		"algorithm", alg,
		"private_key", cfg.PrivateKeyPath,
		"published_keys", len(jwks.Keys),
	)
	return &signingKeys{alg: alg, sign: sign, verify: verify, jwks: jwks}, nil
}
