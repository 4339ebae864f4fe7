package middleware

import (
	"net/http"

	"github.com/grmc/storefront-backend/api/validators"
	"github.com/grmc/storefront-backend/internal/access"
	"github.com/grmc/storefront-backend/pkg/auth/session"
	"github.com/grmc/storefront-backend/pkg/config"
	"github.com/grmc/storefront-backend/pkg/logger"
)

// PageGate redirects page requests according to access.Evaluate. Any token
// problem counts as no session.
func PageGate(cfg config.JWTConfig, cookieName string, verifier session.AccessSessionChecker, roles access.RoleLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var userID string
			if token := validators.AccessToken(r, cookieName); token != "" {
				if claims, err := verifyToken(ctx, cfg, verifier, token); err == nil {
					userID = claims.UserID.String()
					ctx = withIdentity(ctx, userID, string(claims.Role), claims.Email, token)
				}
			}

			decision := access.Evaluate(ctx, r.URL.Path, userID, roles)
			if !decision.Proceed() {
				if logg != nil {
					logg.Debug(logg.WithFields(ctx, map[string]any{
						"path":     r.URL.Path,
						"redirect": decision.Redirect,
						"reason":   decision.Reason,
					}), "access.redirect")
				}
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
