package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

// OrderLine is the per-item slice of an order event.
type OrderLine struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// OrderCreatedEvent is emitted in the checkout transaction.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      string          `json:"userId"`
	UserEmail   string          `json:"userEmail"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Items       []OrderLine     `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderStatusChangedEvent is emitted when an admin moves an order.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"orderId"`
	OrderNumber    string            `json:"orderNumber"`
	UserID         string            `json:"userId"`
	UserEmail      string            `json:"userEmail"`
	PreviousStatus enums.OrderStatus `json:"previousStatus"`
	Status         enums.OrderStatus `json:"status"`
	ChangedAt      time.Time         `json:"changedAt"`
}
