package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/promptmart/promptmart-backend/api/responses"
	pkgauth "github.com/promptmart/promptmart-backend/pkg/auth"
	"github.com/promptmart/promptmart-backend/pkg/config"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
)

// Auth validates the access token and seeds the request context with the
// claims. The token is read from the Authorization header first, then from
// the session cookie.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookie, err := r.Cookie(pkgauth.SessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
