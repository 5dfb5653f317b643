package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

type Admin struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email             string          `gorm:"column:email;not null;uniqueIndex:ux_admins_email"`
	PasswordHash      string          `gorm:"column:password_hash;not null"`
	Name              string          `gorm:"column:name;not null"`
	Role              enums.AdminRole `gorm:"column:role;type:admin_role;not null;default:'admin'"`
	IsActive          bool            `gorm:"column:is_active;not null"`
	IsDefaultPassword bool            `gorm:"column:is_default_password;not null"`
	LastLoginAt       *time.Time      `gorm:"column:last_login_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
