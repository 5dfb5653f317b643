package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

// AdminLoginScope namespaces the admin login counters, e.g.
// "ae:rate_limit:admin_login:ip:203.0.113.7".
const AdminLoginScope = "admin_login"

// Login bodies are tiny; anything bigger is not worth buffering to find an email.
const maxLoginBody = 16 << 10

type rateLimiterStore interface {
	RateLimitKey(scope string) string
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// LoginRateLimitPolicy throttles a login surface per client IP and per
// submitted email. A zero limit disables that dimension.
type LoginRateLimitPolicy struct {
	scope      string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewLoginRateLimitPolicy reads the STOREFRONT_AUTH_RATE_LIMIT_LOGIN_* settings.
func NewLoginRateLimitPolicy(scope string, cfg config.AuthRateLimitConfig) LoginRateLimitPolicy {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = AdminLoginScope
	}
	return LoginRateLimitPolicy{
		scope:      scope,
		window:     cfg.LoginWindow,
		ipLimit:    cfg.LoginIPLimit,
		emailLimit: cfg.LoginEmailLimit,
	}
}

func (p LoginRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p LoginRateLimitPolicy) key(store rateLimiterStore, dimension, value string) string {
	if value == "" {
		return ""
	}
	return store.RateLimitKey(p.scope + ":" + dimension + ":" + value)
}

// LoginRateLimit rejects login attempts over the policy with 429 and a
// Retry-After header. The request body is restored for the handler.
func LoginRateLimit(policy LoginRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if policy.ipLimit > 0 {
				if key := policy.key(store, "ip", ip); key != "" {
					if blocked := checkLimit(ctx, logg, w, store, policy, key, "ip", ip, policy.ipLimit); blocked {
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read login request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := normalizeEmail(extractEmail(body)); email != "" {
					hash := hashValue(email)
					if blocked := checkLimit(ctx, logg, w, store, policy, policy.key(store, "email", hash), "email", hash, policy.emailLimit); blocked {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkLimit counts the attempt and writes the rejection when it is over
// limit. It reports whether the request was answered.
func checkLimit(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store rateLimiterStore, policy LoginRateLimitPolicy, key, dimension, subject string, limit int) bool {
	count, err := store.IncrWithTTL(ctx, key, policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login rate limit"))
		return true
	}
	if count <= int64(limit) {
		return false
	}

	retryAfter := int(policy.window.Seconds())
	if logg != nil {
		fields := map[string]any{
			"scope":          policy.scope,
			"dimension":      dimension,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": retryAfter,
		}
		if dimension == "ip" {
			fields["ip"] = subject
		} else {
			fields["email_hash"] = subject
		}
		logg.Warn(logg.WithFields(ctx, fields), "admin.login.throttled")
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many login attempts, please try again later").
		WithDetails(map[string]any{"retryAfterSeconds": retryAfter}))
	return true
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
