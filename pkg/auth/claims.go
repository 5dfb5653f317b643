package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

// CustomerTokenPayload is what the sign-in service puts into a customer token.
type CustomerTokenPayload struct {
	UserID string
	Email  string
	Name   string
}

// CustomerClaims is the bearer token presented by signed-in shoppers.
type CustomerClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// AdminTokenPayload captures the data available when minting an admin JWT.
type AdminTokenPayload struct {
	AdminID  uuid.UUID
	Email    string
	Role     enums.AdminRole
	AccessID string
}

// AdminClaims is carried by the admin-token cookie. The jti doubles as the
// Redis session key.
type AdminClaims struct {
	AdminID uuid.UUID       `json:"admin_id"`
	Email   string          `json:"email"`
	Role    enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
