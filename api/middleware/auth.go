package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/identity"
	pkgAuth "github.com/ideasdevops/lead-ia/pkg/auth"
	"github.com/ideasdevops/lead-ia/pkg/config"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

type accessResolver interface {
	Resolve(ctx context.Context, userID uint) (*identity.Access, error)
}

// Auth verifies the bearer access token and resolves the caller's current grants.
// Inactive or unapproved accounts are rejected even with a valid token.
func Auth(cfg config.JWTConfig, resolver accessResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			access, err := resolver.Resolve(r.Context(), claims.UserID)
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
					err = pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !access.IsActive {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is inactive"))
				return
			}
			if !access.IsApproved {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval"))
				return
			}

			ctx := WithPrincipal(r.Context(), facade.PrincipalFromAccess(access))
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}
