package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhiruchieats/storefront-api/internal/orders"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/types"
)

// activeWindow is how recent the last order must be for a customer to count as active.
const activeWindow = 30 * 24 * time.Hour

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type aggregateSource interface {
	Aggregates(ctx context.Context) ([]Aggregate, error)
}

type orderLister interface {
	ListByCustomer(ctx context.Context, userID string) ([]orders.OrderDTO, error)
}

type CustomerDTO struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	TotalOrders   int64       `json:"totalOrders"`
	TotalSpent    types.Money `json:"totalSpent"`
	LastOrderDate time.Time   `json:"lastOrderDate"`
	Status        string      `json:"status"`
}

// Service reads customers as seen through their orders.
type Service interface {
	List(ctx context.Context) ([]CustomerDTO, error)
	Orders(ctx context.Context, customerID string) ([]orders.OrderDTO, error)
}

type service struct {
	source aggregateSource
	orders orderLister
	now    func() time.Time
}

func NewService(source aggregateSource, orders orderLister) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("customer aggregate source required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order lister required")
	}
	return &service{source: source, orders: orders, now: time.Now}, nil
}

func (s *service) List(ctx context.Context) ([]CustomerDTO, error) {
	rows, err := s.source.Aggregates(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate customers")
	}
	cutoff := s.now().Add(-activeWindow)
	out := make([]CustomerDTO, 0, len(rows))
	for _, row := range rows {
		status := StatusInactive
		if !row.LastOrderDate.Before(cutoff) {
			status = StatusActive
		}
		out = append(out, CustomerDTO{
			ID:            row.UserID,
			Name:          row.Name,
			Email:         row.Email,
			TotalOrders:   row.TotalOrders,
			TotalSpent:    types.NewMoney(row.TotalSpent.Round(2)),
			LastOrderDate: row.LastOrderDate,
			Status:        status,
		})
	}
	return out, nil
}

func (s *service) Orders(ctx context.Context, customerID string) ([]orders.OrderDTO, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Customer ID is required")
	}
	return s.orders.ListByCustomer(ctx, customerID)
}
