package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

// CartItem is one product line owned by a session or a signed-in user.
type CartItem struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OwnerKind          enums.OwnerKind       `gorm:"column:owner_kind;type:cart_owner_kind;not null"`
	OwnerID            string                `gorm:"column:owner_id;not null"`
	ProductID          uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	ProductName        string                `gorm:"column:product_name;not null"`
	ProductDescription string                `gorm:"column:product_description;not null"`
	ProductPrice       decimal.Decimal       `gorm:"column:product_price;type:numeric(10,2);not null"`
	ProductImageURL    string                `gorm:"column:product_image_url;not null"`
	ProductCategory    enums.ProductCategory `gorm:"column:product_category;type:product_category;not null"`
	Quantity           int                   `gorm:"column:quantity;not null"`
	TotalPrice         decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
