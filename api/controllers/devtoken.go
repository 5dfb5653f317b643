package controllers

import (
	"net/http"
	"time"

	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/api/validators"
	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

type devTokenRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required,max=120"`
}

// DevToken mints a customer bearer token the way the sign-in service would.
// It refuses to run in production or when the feature flag is off.
func DevToken(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.App.IsProd() || !cfg.FeatureFlags.DevTokenIssue {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "dev tokens are disabled"))
			return
		}

		var body devTokenRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now()
		token, err := pkgauth.MintCustomerToken(cfg.JWT, now, pkgauth.CustomerTokenPayload{
			UserID: body.UserID,
			Email:  body.Email,
			Name:   validators.SanitizeString(body.Name, 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint dev token"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"token":     token,
			"expiresAt": now.Add(time.Duration(cfg.JWT.ExpirationMinutes) * time.Minute),
		})
	}
}
