package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestIssuerRegistry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	scopes := domain.DefaultScopeRegistry()
	reg, err := service.NewIssuerRegistry(service.IssuerSettings{
		Algorithm:  jwtx.HS256,
		Key:        testSecret,
		Issuer:     testPrefix,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        func() time.Time { return now },
	}, scopes)
	require.NoError(t, err)

	for _, c := range []domain.Category{domain.CategoryAPIClient, domain.CategoryManager, domain.CategoryAdmin} {
		t.Run(string(c), func(t *testing.T) {
			iss, err := reg.For(c)
			require.NoError(t, err)

			issued, err := iss.AccessToken("currex.test.someone.id1", jwtx.IssueOptions{})
			require.NoError(t, err)
			want, _ := scopes.Defaults(c)
			require.Equal(t, want, issued.Scope)
			require.NotEmpty(t, issued.ID)
			require.Equal(t, int64(60), issued.ExpiresIn())
		})
	}

	_, err = reg.For(domain.CategoryAnonymousClient)
	require.ErrorIs(t, err, service.ErrCategoryNotIssuable)
}

func TestIssuerRegistryRejectsBadKey(t *testing.T) {
	_, err := service.NewIssuerRegistry(service.IssuerSettings{
		Algorithm: jwtx.RS256,
		Key:       testSecret,
	}, domain.DefaultScopeRegistry())
	require.ErrorIs(t, err, jwtx.ErrKeyType)
}
