package httpx

import (
	"context"

	"github.com/aussiebroadwan/currex/pkg/jwtx"
)

type ctxKey string

const ctxKeyToken ctxKey = "token"

// WithToken stores an authenticated token on ctx.
func WithToken(ctx context.Context, tok *jwtx.Token) context.Context {
	return context.WithValue(ctx, ctxKeyToken, tok)
}

// TokenFromContext returns the token placed by BearerAuth.
func TokenFromContext(ctx context.Context) (*jwtx.Token, bool) {
	tok, ok := ctx.Value(ctxKeyToken).(*jwtx.Token)
	return tok, ok && tok != nil
}
