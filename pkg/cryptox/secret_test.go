package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	for _, size := range []int{cryptox.SecretSize256, cryptox.SecretSize512, 24} {
		a, err := cryptox.GenerateSecret(size)
		require.NoError(t, err)
		b, err := cryptox.GenerateSecret(size)
		require.NoError(t, err)
		require.NotEqual(t, a, b)

		raw, err := base64.RawURLEncoding.DecodeString(a)
		require.NoError(t, err)
		require.Len(t, raw, size)
	}

	for _, size := range []int{0, -1} {
		s, err := cryptox.GenerateSecret(size)
		require.Error(t, err)
		require.Empty(t, s)
	}
}
