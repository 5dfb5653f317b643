package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/types"
)

// OrderItemDTO is one immutable order line.
type OrderItemDTO struct {
	ID                 uuid.UUID   `json:"id"`
	ProductID          uuid.UUID   `json:"productId"`
	ProductName        string      `json:"productName"`
	ProductDescription string      `json:"productDescription"`
	ProductPrice       types.Money `json:"productPrice"`
	ProductImageURL    string      `json:"productImageUrl"`
	ProductCategory    string      `json:"productCategory"`
	Quantity           int         `json:"quantity"`
	TotalPrice         types.Money `json:"totalPrice"`
}

// OrderDTO is the order as returned to customers and admins.
type OrderDTO struct {
	ID              uuid.UUID      `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	UserID          string         `json:"userId"`
	UserEmail       string         `json:"userEmail"`
	UserName        string         `json:"userName"`
	Items           []OrderItemDTO `json:"items"`
	Subtotal        types.Money    `json:"subtotal"`
	Tax             types.Money    `json:"tax"`
	Total           types.Money    `json:"total"`
	Status          string         `json:"status"`
	StatusChangedAt *time.Time     `json:"statusChangedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders     int64       `json:"totalOrders"`
	PendingOrders   int64       `json:"pendingOrders"`
	ConfirmedOrders int64       `json:"confirmedOrders"`
	DeliveredOrders int64       `json:"deliveredOrders"`
	TodayOrders     int64       `json:"todayOrders"`
	TotalRevenue    types.Money `json:"totalRevenue"`
}

func NewOrderDTO(order *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductDescription: item.ProductDescription,
			ProductPrice:       types.NewMoney(item.ProductPrice),
			ProductImageURL:    item.ProductImageURL,
			ProductCategory:    string(item.ProductCategory),
			Quantity:           item.Quantity,
			TotalPrice:         types.NewMoney(item.TotalPrice),
		})
	}
	return OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		UserEmail:       order.UserEmail,
		UserName:        order.UserName,
		Items:           items,
		Subtotal:        types.NewMoney(order.Subtotal),
		Tax:             types.NewMoney(order.Tax),
		Total:           types.NewMoney(order.Total),
		Status:          string(order.Status),
		StatusChangedAt: order.StatusChangedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func NewOrderDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderDTO(&orders[i]))
	}
	return out
}
