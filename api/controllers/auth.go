package controllers

import (
	"net/http"
	"time"

	"github.com/grmc/storefront-backend/api/middleware"
	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/api/validators"
	authsvc "github.com/grmc/storefront-backend/internal/auth"
	"github.com/grmc/storefront-backend/internal/identity"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/logger"
)

// SessionCookie describes the cookie mirroring the access token for page requests.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (c SessionCookie) set(w http.ResponseWriter, session *identity.Session) {
	if c.Name == "" || session == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookie) clear(w http.ResponseWriter) {
	if c.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func AuthLogin(svc authsvc.Service, cookie SessionCookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authsvc.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Login(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie.set(w, result.Session)
		responses.WriteSuccess(w, result)
	}
}

func AuthRegister(svc authsvc.Service, cookie SessionCookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authsvc.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie.set(w, result.Session)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AuthLogout always succeeds from the client's point of view; the cookie is
// dropped even when no token was presented.
func AuthLogout(svc authsvc.Service, cookie SessionCookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := validators.AccessToken(r, cookie.Name)
		result, err := svc.Logout(r.Context(), token)
		cookie.clear(w)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AuthRefresh(svc authsvc.Service, cookie SessionCookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authsvc.RefreshRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Refresh(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie.set(w, result.Session)
		responses.WriteSuccess(w, result)
	}
}

// AuthSession reports the current user, or null when logged out.
func AuthSession(svc authsvc.Service, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := validators.AccessToken(r, cookie.Name)
		var user *authsvc.AuthenticatedUser
		if token != "" {
			user = svc.CheckSession(r.Context(), token)
		}
		if user == nil && token != "" {
			cookie.clear(w)
		}
		responses.WriteSuccess(w, map[string]any{"user": user})
	}
}

func ProfileGet(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := svc.CheckSession(r.Context(), middleware.AccessTokenFromContext(r.Context()))
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func ProfileUpdate(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := svc.CheckSession(r.Context(), middleware.AccessTokenFromContext(r.Context()))
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
			return
		}
		var req authsvc.ProfileUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.UpdateProfile(r.Context(), *user, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
