package cryptox_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateRSAKey(t *testing.T) {
	key, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	require.Equal(t, 2048, key.N.BitLen())

	_, err = cryptox.GenerateRSAKey(1024)
	require.Error(t, err)

	t.Run("PKCS1 PEM", func(t *testing.T) {
		out, err := cryptox.PrivateKeyPEM(key)
		require.NoError(t, err)

		block, _ := pem.Decode(out)
		require.NotNil(t, block)
		require.Equal(t, "RSA PRIVATE KEY", block.Type)

		parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		require.NoError(t, err)
		require.True(t, key.Equal(parsed))
	})

	t.Run("PKCS8 PEM", func(t *testing.T) {
		out, err := cryptox.PKCS8PEM(key)
		require.NoError(t, err)

		block, _ := pem.Decode(out)
		require.NotNil(t, block)
		require.Equal(t, "PRIVATE KEY", block.Type)

		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		require.NoError(t, err)
		require.IsType(t, &rsa.PrivateKey{}, parsed)
	})
}

func TestGenerateES256Key(t *testing.T) {
	key, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	require.Equal(t, elliptic.P256(), key.Curve)

	out, err := cryptox.PrivateKeyPEM(key)
	require.NoError(t, err)

	block, _ := pem.Decode(out)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	ec, ok := parsed.(*ecdsa.PrivateKey)
	require.True(t, ok)
	require.True(t, key.Equal(ec))
}
