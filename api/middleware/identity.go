package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/internal/identity"
	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

const (
	// SessionHeader carries the anonymous cart session in both directions.
	SessionHeader = "X-Session-Id"

	maxSessionIDLength = 128
)

// Identity resolves who is calling and stores it on the request context. A
// valid customer bearer token wins; otherwise the X-Session-Id header is
// used, and a new session id is minted and echoed when it is absent.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := resolveIdentity(cfg, w, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := identity.WithContext(r.Context(), who)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, string(who.Kind()), who.OwnerKey())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveIdentity(cfg config.JWTConfig, w http.ResponseWriter, r *http.Request) (identity.Identity, error) {
	if token, ok := bearerToken(r); ok {
		claims, err := pkgauth.ParseCustomerToken(cfg, token)
		if err != nil {
			return identity.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Invalid token")
		}
		return identity.Authenticated(claims.UserID, claims.Email, claims.Name), nil
	}

	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if len(sessionID) > maxSessionIDLength {
		return identity.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid session id")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
		w.Header().Set(SessionHeader, sessionID)
	}
	return identity.Anonymous(sessionID), nil
}

// bearerToken reports the Authorization bearer value, if any.
func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(raw[7:])
	return token, token != ""
}
