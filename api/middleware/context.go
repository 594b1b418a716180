package middleware

import (
	"context"

	"github.com/ideasdevops/lead-ia/internal/facade"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the zero Principal for unauthenticated requests, which
// every facade operation rejects as UNAUTHORIZED.
func PrincipalFromContext(ctx context.Context) facade.Principal {
	if ctx == nil {
		return facade.Principal{}
	}
	if p, ok := ctx.Value(ctxPrincipal).(facade.Principal); ok {
		return p
	}
	return facade.Principal{}
}

func WithPrincipal(ctx context.Context, p facade.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
