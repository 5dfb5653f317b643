package admins

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
)

// LoginRequest captures the credentials sent to the admin login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of the change-password endpoint.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type AdminDTO struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Role              string     `json:"role"`
	IsDefaultPassword bool       `json:"isDefaultPassword"`
	LastLoginAt       *time.Time `json:"lastLogin,omitempty"`
}

// LoginResult carries the admin-token JWT alongside the profile. AccessID is
// the session key and never leaves the server.
type LoginResult struct {
	Token             string    `json:"token"`
	Admin             AdminDTO  `json:"admin"`
	IsDefaultPassword bool      `json:"isDefaultPassword"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AccessID          string    `json:"-"`
}

func NewAdminDTO(a *models.Admin) AdminDTO {
	return AdminDTO{
		ID:                a.ID,
		Email:             a.Email,
		Name:              a.Name,
		Role:              string(a.Role),
		IsDefaultPassword: a.IsDefaultPassword,
		LastLoginAt:       a.LastLoginAt,
	}
}
