package jwtx_test

import (
	"testing"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		required []string
		wantErr  error
	}{
		{name: "subset", held: []string{"a", "b", "c"}, required: []string{"a", "c"}},
		{name: "exact", held: []string{"a", "b"}, required: []string{"a", "b"}},
		{name: "nothing required", held: []string{"a"}, required: nil},
		{name: "nothing required nothing held", held: nil, required: nil},
		{name: "missing one", held: []string{"a", "b"}, required: []string{"a", "b", "c"}, wantErr: jwtx.ErrInsufficientScope},
		{name: "no scopes held", held: nil, required: []string{"a"}, wantErr: jwtx.ErrInsufficientScope},
		{name: "all grants everything", held: []string{"all"}, required: []string{"a", "b", "c"}},
		{name: "all anywhere in the list", held: []string{"a", "all"}, required: []string{"z"}},
		{name: "refresh token denied", held: []string{"refresh", "a"}, required: []string{"a"}, wantErr: jwtx.ErrRefreshToken},
		{name: "refresh token denied with all", held: []string{"refresh", "all"}, required: []string{"a"}, wantErr: jwtx.ErrRefreshToken},
		{name: "refresh token denied without requirements", held: []string{"refresh"}, required: nil, wantErr: jwtx.ErrRefreshToken},
		{name: "refresh marker not first", held: []string{"a", "refresh"}, required: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := jwtx.Authorize(tt.held, tt.required)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
