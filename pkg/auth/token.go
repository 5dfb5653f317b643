package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintCustomerToken issues a customer bearer token. Production tokens come
// from the sign-in service; this path serves the dev token endpoint and tests.
func MintCustomerToken(cfg config.JWTConfig, now time.Time, payload CustomerTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if strings.TrimSpace(payload.UserID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(payload.Email) == "" {
		return "", fmt.Errorf("email is required")
	}

	claims := CustomerClaims{
		UserID: payload.UserID,
		Email:  payload.Email,
		Name:   payload.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	return sign(claims, cfg.Secret)
}

// ParseCustomerToken validates the JWT string and returns typed claims.
func ParseCustomerToken(cfg config.JWTConfig, tokenString string) (*CustomerClaims, error) {
	claims := &CustomerClaims{}
	if err := parse(cfg.Secret, cfg.Issuer, tokenString, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("token missing user_id")
	}
	return claims, nil
}

// MintAdminToken issues the admin-token JWT valid for cfg.TokenTTL.
func MintAdminToken(cfg config.AdminAuthConfig, now time.Time, payload AdminTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("admin jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		return "", fmt.Errorf("admin token ttl must be positive")
	}
	if payload.AdminID == uuid.Nil {
		return "", fmt.Errorf("admin id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid admin role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.AccessID)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AdminClaims{
		AdminID: payload.AdminID,
		Email:   payload.Email,
		Role:    payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.AdminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			ID:        jti,
		},
	}
	return sign(claims, cfg.Secret)
}

func ParseAdminToken(cfg config.AdminAuthConfig, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parse(cfg.Secret, cfg.Issuer, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == uuid.Nil {
		return nil, fmt.Errorf("token missing admin_id")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("token missing jti")
	}
	return claims, nil
}

func sign(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func parse(secret, issuer, tokenString string, claims jwt.Claims) error {
	if secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwtSigningMethod.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		opts...,
	)
	return err
}
