package middleware

import (
	"net/http"

	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

// RequireAdminRole lets through admins whose role satisfies role.
func RequireAdminRole(role enums.AdminRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AdminRoleFromContext(r.Context()).Satisfies(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
