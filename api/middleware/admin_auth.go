package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/api/responses"
	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/auth/session"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

type adminLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

// AdminAuth validates the admin-token cookie (or a bearer header), checks the
// backing session and reloads the admin so deactivation takes effect at once.
func AdminAuth(cfg config.AdminAuthConfig, sessions session.AccessSessionChecker, admins adminLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := adminToken(r, cfg.CookieName)
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Admin authentication required"))
				return
			}

			claims, err := pkgauth.ParseAdminToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Invalid token"))
				return
			}

			if sessions != nil {
				ok, err := sessions.HasSession(ctx, claims.ID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Session expired"))
					return
				}
			}

			admin, err := admins.FindByID(ctx, claims.AdminID)
			if err != nil && !db.IsNotFound(err) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load admin"))
				return
			}
			if admin == nil || !admin.IsActive {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Admin access denied"))
				return
			}

			ctx = WithAdmin(ctx, admin.ID, admin.Role, claims.ID)
			if logg != nil {
				ctx = logg.WithAdminID(ctx, admin.ID.String())
				ctx = logg.WithField(ctx, "admin_role", string(admin.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			if v := strings.TrimSpace(c.Value); v != "" {
				return v
			}
		}
	}
	token, _ := bearerToken(r)
	return token
}
