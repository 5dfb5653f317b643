package customers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
)

// Aggregate is one customer's order history folded into a single row.
type Aggregate struct {
	UserID        string          `gorm:"column:user_id"`
	Name          string          `gorm:"column:name"`
	Email         string          `gorm:"column:email"`
	TotalOrders   int64           `gorm:"column:total_orders"`
	TotalSpent    decimal.Decimal `gorm:"column:total_spent"`
	LastOrderDate time.Time       `gorm:"column:last_order_date"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Aggregates groups orders by customer, biggest spenders first.
func (r *Repository) Aggregates(ctx context.Context) ([]Aggregate, error) {
	var rows []Aggregate
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`user_id,
			MAX(user_name) AS name,
			MAX(user_email) AS email,
			COUNT(*) AS total_orders,
			COALESCE(SUM(total), 0) AS total_spent,
			MAX(created_at) AS last_order_date`).
		Group("user_id").
		Order("total_spent DESC").
		Order("user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
