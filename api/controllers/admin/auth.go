package admin

import (
	"net/http"
	"time"

	"github.com/abhiruchieats/storefront-api/api/middleware"
	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/api/validators"
	"github.com/abhiruchieats/storefront-api/internal/admins"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

// Login verifies credentials and sets the admin-token cookie. The token is
// also returned in the body for non-browser clients.
func Login(svc admins.Service, cfg config.AdminAuthConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var body admins.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, adminCookie(cfg, result.Token, result.ExpiresAt))
		responses.WriteSuccessMessage(w, http.StatusOK, result, "Login successful")
	}
}

// Logout revokes the session behind the presented token and clears the cookie.
func Logout(svc admins.Service, cfg config.AdminAuthConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		if err := svc.Logout(r.Context(), middleware.AccessIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, adminCookie(cfg, "", time.Unix(0, 0)))
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Logged out successfully")
	}
}

func Me(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		admin, err := svc.Me(r.Context(), middleware.AdminIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, admin)
	}
}

func ChangePassword(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var body admins.ChangePasswordRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), middleware.AdminIDFromContext(r.Context()), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Password changed successfully")
	}
}

func adminCookie(cfg config.AdminAuthConfig, value string, expires time.Time) *http.Cookie {
	maxAge := int(time.Until(expires).Seconds())
	if value == "" || maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
