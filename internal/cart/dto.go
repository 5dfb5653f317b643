package cart

import (
	"time"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/types"
	"github.com/google/uuid"
)

// CartItemDTO is a cart line with its product snapshot.
type CartItemDTO struct {
	ID                 uuid.UUID   `json:"id"`
	ProductID          uuid.UUID   `json:"productId"`
	ProductName        string      `json:"productName"`
	ProductDescription string      `json:"productDescription"`
	ProductPrice       types.Money `json:"productPrice"`
	ProductImageURL    string      `json:"productImageUrl"`
	ProductCategory    string      `json:"productCategory"`
	Quantity           int         `json:"quantity"`
	TotalPrice         types.Money `json:"totalPrice"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// CartDTO is the full cart view.
type CartDTO struct {
	Items     []CartItemDTO `json:"items"`
	CartTotal types.Money   `json:"cartTotal"`
	ItemCount int           `json:"itemCount"`
}

// AddResult reports whether Add inserted a new line or incremented one.
type AddResult struct {
	Item    CartItemDTO
	Created bool
}

// MergeResult summarizes a session-to-user cart merge.
type MergeResult struct {
	Cart        CartDTO `json:"cart"`
	MergedLines int     `json:"mergedLines"`
}

func NewCartItemDTO(item *models.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:                 item.ID,
		ProductID:          item.ProductID,
		ProductName:        item.ProductName,
		ProductDescription: item.ProductDescription,
		ProductPrice:       types.NewMoney(item.ProductPrice),
		ProductImageURL:    item.ProductImageURL,
		ProductCategory:    string(item.ProductCategory),
		Quantity:           item.Quantity,
		TotalPrice:         types.NewMoney(item.TotalPrice),
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}

func NewCartDTO(items []models.CartItem) CartDTO {
	out := CartDTO{Items: make([]CartItemDTO, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, NewCartItemDTO(&items[i]))
	}
	total, count := Totals(items)
	out.CartTotal = types.NewMoney(total)
	out.ItemCount = count
	return out
}
