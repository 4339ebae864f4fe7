package middleware

import (
	"net/http"

	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/internal/access"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/logger"
)

// RequireAdmin looks up the stored profile role on every request. API clients
// get a 403 rather than the redirect page routes receive.
func RequireAdmin(roles access.RoleLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			role, err := roles.RoleOf(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if role != enums.RoleAdmin {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			ctx := WithRole(r.Context(), string(role))
			if logg != nil {
				ctx = logg.WithRole(ctx, string(role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
