package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

// Product is a menu entry. Cart and order lines snapshot its fields.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name        string                `gorm:"column:name;not null;uniqueIndex:ux_products_name"`
	Description string                `gorm:"column:description;not null"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	ImageURL    string                `gorm:"column:image_url;not null"`
	Category    enums.ProductCategory `gorm:"column:category;type:product_category;not null"`
	InStock     bool                  `gorm:"column:in_stock;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
