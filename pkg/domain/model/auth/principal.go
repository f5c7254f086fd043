package auth

import (
	"context"
)

// Principal is the authenticated caller of the HTTP surface. Identity issuance
// happens elsewhere; this service only consumes a verified numeric user ID.
type Principal struct {
	UserID int64
	Sub    string
}

type principalCtxKey struct{}

// ContextWithPrincipal stores p in ctx
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, or nil
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	if !ok {
		return nil
	}
	return p
}
