package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

// Order is an immutable snapshot of a checked-out cart; only Status moves.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID          string            `gorm:"column:user_id;not null"`
	UserEmail       string            `gorm:"column:user_email;not null"`
	UserName        string            `gorm:"column:user_name;not null"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax             decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	StatusChangedAt *time.Time        `gorm:"column:status_changed_at"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem copies the cart line verbatim at checkout time.
type OrderItem struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	Position           int                   `gorm:"column:position;not null"`
	ProductID          uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	ProductName        string                `gorm:"column:product_name;not null"`
	ProductDescription string                `gorm:"column:product_description;not null"`
	ProductPrice       decimal.Decimal       `gorm:"column:product_price;type:numeric(10,2);not null"`
	ProductImageURL    string                `gorm:"column:product_image_url;not null"`
	ProductCategory    enums.ProductCategory `gorm:"column:product_category;type:product_category;not null"`
	Quantity           int                   `gorm:"column:quantity;not null"`
	TotalPrice         decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
}
