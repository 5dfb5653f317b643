package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/abhiruchieats/storefront-api/internal/cart"
	"github.com/abhiruchieats/storefront-api/internal/identity"
	"github.com/abhiruchieats/storefront-api/internal/notifications"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/lock"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/metrics"
	"github.com/abhiruchieats/storefront-api/pkg/outbox"
	"github.com/abhiruchieats/storefront-api/pkg/outbox/payloads"
	"github.com/abhiruchieats/storefront-api/pkg/pagination"
	"github.com/abhiruchieats/storefront-api/pkg/types"
)

const (
	orderNumberConstraint = "ux_orders_order_number"
	maxNumberAttempts     = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockChecker interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Service defines customer checkout and admin order operations.
type Service interface {
	PlaceOrder(ctx context.Context, who identity.Identity) (*OrderDTO, error)
	ListMine(ctx context.Context, who identity.Identity) ([]OrderDTO, error)
	GetMine(ctx context.Context, who identity.Identity, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input StatusUpdate) (*OrderDTO, error)
	AdminList(ctx context.Context, params pagination.Params, status string) (*types.Page[OrderDTO], error)
	ListByCustomer(ctx context.Context, userID string) ([]OrderDTO, error)
	Stats(ctx context.Context) (*Stats, error)
}

// StatusUpdate is an admin request to move an order.
type StatusUpdate struct {
	OrderID uuid.UUID
	Status  string
	AdminID uuid.UUID
}

// Deps groups what the order service needs. Products is only consulted when
// checkout stock gating is on; Metrics and Logger may be nil.
type Deps struct {
	Repo     Repository
	Carts    cart.CartRepository
	Products stockChecker
	Tx       txRunner
	Outbox   outboxPublisher
	Locker   lock.Locker
	Notifier notifications.Notifier
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
	Config   config.OrdersConfig
}

type service struct {
	repo       Repository
	carts      cart.CartRepository
	products   stockChecker
	tx         txRunner
	outbox     outboxPublisher
	locker     lock.Locker
	notifier   notifications.Notifier
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
	taxRate    decimal.Decimal
	gateStock  bool
	allow      transitionPolicy
	nextNumber func() (string, error)
	now        func() time.Time
}

func NewService(d Deps) (Service, error) {
	if d.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if d.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if d.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if d.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if d.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if d.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if d.Config.GateCheckoutStock && d.Products == nil {
		return nil, fmt.Errorf("product lookup required when checkout stock gating is enabled")
	}
	rate, err := d.Config.Tax()
	if err != nil {
		return nil, err
	}
	numbers := newNumberSource(d.Config.NumberPrefix, time.Now)
	return &service{
		repo:       d.Repo,
		carts:      d.Carts,
		products:   d.Products,
		tx:         d.Tx,
		outbox:     d.Outbox,
		locker:     d.Locker,
		notifier:   d.Notifier,
		metrics:    d.Metrics,
		logg:       d.Logger,
		taxRate:    rate,
		gateStock:  d.Config.GateCheckoutStock,
		allow:      policyFor(d.Config.StrictTransitions),
		nextNumber: numbers.Next,
		now:        time.Now,
	}, nil
}

// PlaceOrder turns the caller's cart into a pending order and empties the
// cart in the same transaction.
func (s *service) PlaceOrder(ctx context.Context, who identity.Identity) (*OrderDTO, error) {
	if err := who.RequireAuthenticated(); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, who.LockKey())
	if err != nil {
		return nil, err
	}
	defer release()

	var order *models.Order
	for attempt := 1; ; attempt++ {
		order, err = s.placeOnce(ctx, who)
		if err == nil {
			break
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		if db.IsUniqueViolation(err, orderNumberConstraint) && attempt < maxNumberAttempts {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order.number_collision")
			}
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	s.metrics.OrderPlaced(order.Total)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"total":        order.Total.StringFixed(2),
			"items":        len(order.Items),
		})
		s.logg.Info(logCtx, "order.placed")
	}

	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) placeOnce(ctx context.Context, who identity.Identity) (*models.Order, error) {
	number, err := s.nextNumber()
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		lines, err := carts.ListByOwner(ctx, who.Kind(), who.OwnerKey())
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "Cart is empty")
		}
		if s.gateStock {
			if err := s.checkStock(ctx, lines); err != nil {
				return err
			}
		}

		order = s.buildOrder(who, number, lines)
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, orderCreatedEvent(order)); err != nil {
			return err
		}
		_, err = carts.DeleteByOwner(ctx, who.Kind(), who.OwnerKey())
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) checkStock(ctx context.Context, lines []models.CartItem) error {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	inStock := make(map[uuid.UUID]bool, len(found))
	for _, p := range found {
		inStock[p.ID] = p.InStock
	}
	for _, line := range lines {
		if !inStock[line.ProductID] {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is out of stock", line.ProductName)).
				WithDetails(map[string]any{"productId": line.ProductID})
		}
	}
	return nil
}

func (s *service) buildOrder(who identity.Identity, number string, lines []models.CartItem) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		UserID:      who.UserID(),
		UserEmail:   who.Email(),
		UserName:    who.Name(),
		Status:      enums.OrderStatusPending,
		Items:       make([]models.OrderItem, 0, len(lines)),
	}
	subtotal := decimal.Zero
	for i, line := range lines {
		subtotal = subtotal.Add(line.TotalPrice)
		order.Items = append(order.Items, models.OrderItem{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			Position:           i,
			ProductID:          line.ProductID,
			ProductName:        line.ProductName,
			ProductDescription: line.ProductDescription,
			ProductPrice:       line.ProductPrice,
			ProductImageURL:    line.ProductImageURL,
			ProductCategory:    line.ProductCategory,
			Quantity:           line.Quantity,
			TotalPrice:         line.TotalPrice,
		})
	}
	order.Subtotal = subtotal.Round(2)
	order.Tax = computeTax(order.Subtotal, s.taxRate)
	order.Total = order.Subtotal.Add(order.Tax)
	return order
}

// computeTax rounds half away from zero to two places.
func computeTax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(2)
}

func (s *service) ListMine(ctx context.Context, who identity.Identity) ([]OrderDTO, error) {
	if err := who.RequireAuthenticated(); err != nil {
		return nil, err
	}
	return s.ListByCustomer(ctx, who.UserID())
}

func (s *service) ListByCustomer(ctx context.Context, userID string) ([]OrderDTO, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Customer ID is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return NewOrderDTOs(rows), nil
}

func (s *service) GetMine(ctx context.Context, who identity.Identity, orderID uuid.UUID) (*OrderDTO, error) {
	if err := who.RequireAuthenticated(); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	// Another customer's order is reported as missing.
	if order.UserID != who.UserID() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

// UpdateStatus moves an order and, when the status actually changes, records
// an outbox event in the same transaction and notifies the customer once the
// transaction commits.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdate) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid status")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Order ID is required")
	}

	var (
		order    *models.Order
		previous enums.OrderStatus
		changed  bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if order.Status == status {
			return nil
		}
		if !s.allow(order.Status, status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("Cannot move order from %s to %s", order.Status, status)).
				WithDetails(map[string]any{"from": order.Status, "to": status})
		}

		changedAt := s.now().UTC()
		if err := repo.UpdateStatus(ctx, order.ID, status, changedAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		previous = order.Status
		order.Status = status
		order.StatusChangedAt = &changedAt
		order.UpdatedAt = changedAt

		if err := s.outbox.Emit(ctx, tx, statusChangedEvent(order, previous, input.AdminID)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status change")
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.StatusChanged(string(previous), string(status))
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{"from": previous, "to": status})
			if input.AdminID != uuid.Nil {
				logCtx = s.logg.WithAdminID(logCtx, input.AdminID.String())
			}
			s.logg.Info(logCtx, "order.status_changed")
		}
		s.notify(ctx, order)
	}

	dto := NewOrderDTO(order)
	return &dto, nil
}

// notify never fails the status change; delivery problems are only logged.
func (s *service) notify(ctx context.Context, order *models.Order) {
	msg := notifications.StatusNotification{
		CustomerEmail: order.UserEmail,
		CustomerName:  order.UserName,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		Total:         order.Total,
		Items:         make([]notifications.LineItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		msg.Items = append(msg.Items, notifications.LineItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		})
	}
	if err := s.notifier.SendOrderStatus(ctx, msg); err != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Error(logCtx, "order.notification_failed", err)
	}
}

func (s *service) AdminList(ctx context.Context, params pagination.Params, status string) (*types.Page[OrderDTO], error) {
	var filter *enums.OrderStatus
	if raw := strings.TrimSpace(status); raw != "" && !strings.EqualFold(raw, "all") {
		parsed, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid status")
		}
		filter = &parsed
	}

	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, params, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return &types.Page[OrderDTO]{
		Items:      NewOrderDTOs(rows),
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}

// Stats runs the dashboard counters concurrently.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		stats   Stats
		revenue decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalOrders, err = s.repo.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingOrders, err = s.repo.CountByStatus(gctx, enums.OrderStatusPending)
		return err
	})
	g.Go(func() (err error) {
		stats.ConfirmedOrders, err = s.repo.CountByStatus(gctx, enums.OrderStatusConfirmed)
		return err
	})
	g.Go(func() (err error) {
		stats.DeliveredOrders, err = s.repo.CountByStatus(gctx, enums.OrderStatusDelivered)
		return err
	})
	g.Go(func() (err error) {
		stats.TodayOrders, err = s.repo.CountSince(gctx, midnight)
		return err
	})
	g.Go(func() (err error) {
		revenue, err = s.repo.Revenue(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order stats")
	}
	stats.TotalRevenue = types.NewMoney(revenue)
	return &stats, nil
}

func orderCreatedEvent(order *models.Order) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.ProductPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{Kind: "customer", ID: order.UserID},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			UserEmail:   order.UserEmail,
			Subtotal:    order.Subtotal,
			Tax:         order.Tax,
			Total:       order.Total,
			Items:       lines,
			CreatedAt:   time.Now().UTC(),
		},
	}
}

func statusChangedEvent(order *models.Order, previous enums.OrderStatus, adminID uuid.UUID) outbox.DomainEvent {
	var actor *outbox.ActorRef
	if adminID != uuid.Nil {
		actor = &outbox.ActorRef{Kind: "admin", ID: adminID.String()}
	}
	changedAt := order.UpdatedAt
	if order.StatusChangedAt != nil {
		changedAt = *order.StatusChangedAt
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			UserID:         order.UserID,
			UserEmail:      order.UserEmail,
			PreviousStatus: previous,
			Status:         order.Status,
			ChangedAt:      changedAt,
		},
	}
}
