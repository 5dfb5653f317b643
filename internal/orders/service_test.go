package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/abhiruchieats/storefront-api/internal/cart"
	"github.com/abhiruchieats/storefront-api/internal/identity"
	"github.com/abhiruchieats/storefront-api/internal/notifications"
	product "github.com/abhiruchieats/storefront-api/internal/products"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db/dbtest"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/lock"
	"github.com/abhiruchieats/storefront-api/pkg/outbox"
	"github.com/abhiruchieats/storefront-api/pkg/pagination"
)

func statusOf(s string) enums.OrderStatus { return enums.OrderStatus(s) }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.StatusNotification
	err  error
}

func (r *recordingNotifier) SendOrderStatus(_ context.Context, n notifications.StatusNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type orderFixture struct {
	db       *gorm.DB
	svc      *service
	carts    cart.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, cfg config.OrdersConfig) orderFixture {
	t.Helper()
	conn := dbtest.Open(t, dbtest.Products, dbtest.CartItems, dbtest.Orders, dbtest.OutboxEvents)
	locker := lock.NewLocalLocker()
	txr := dbtest.TxRunner{DB: conn}
	products := product.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	carts, err := cart.NewService(cartRepo, txr, products, locker, nil)
	require.NoError(t, err)

	if cfg.TaxRate == "" {
		cfg.TaxRate = "0.05"
	}
	notifier := &recordingNotifier{}
	svc, err := NewService(Deps{
		Repo:     NewRepository(conn),
		Carts:    cartRepo,
		Products: products,
		Tx:       txr,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Locker:   locker,
		Notifier: notifier,
		Config:   cfg,
	})
	require.NoError(t, err)
	return orderFixture{db: conn, svc: svc.(*service), carts: carts, notifier: notifier}
}

func (f orderFixture) product(t *testing.T, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		ImageURL:    "https://cdn.example.com/item.jpg",
		Category:    enums.ProductCategorySnacks,
		InStock:     true,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f orderFixture) add(t *testing.T, who identity.Identity, p *models.Product, qty int) {
	t.Helper()
	_, err := f.carts.Add(context.Background(), who, p.ID, &qty)
	require.NoError(t, err)
}

func (f orderFixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func customer() identity.Identity {
	return identity.Authenticated("user-1", "priya@example.com", "Priya")
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	if _, err := NewService(Deps{}); err == nil {
		t.Fatal("expected error for missing repository")
	}
}

func TestPlaceOrderComputesTotalsAndClearsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	who := customer()
	mango := f.product(t, "Mango Pickle", "299")
	samosa := f.product(t, "Samosas", "199")
	f.add(t, who, mango, 2)
	f.add(t, who, samosa, 1)

	order, err := f.svc.PlaceOrder(ctx, who)
	require.NoError(t, err)
	require.Equal(t, "797.00", order.Subtotal.String())
	require.Equal(t, "39.85", order.Tax.String())
	require.Equal(t, "836.85", order.Total.String())
	require.Equal(t, string(enums.OrderStatusPending), order.Status)
	require.Regexp(t, orderNumberPattern, order.OrderNumber)
	require.Len(t, order.Items, 2)
	require.Equal(t, "Mango Pickle", order.Items[0].ProductName)
	require.Equal(t, "598.00", order.Items[0].TotalPrice.String())

	cartView, err := f.carts.Get(ctx, who)
	require.NoError(t, err)
	require.Empty(t, cartView.Items)
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderCreated))

	stored, err := f.svc.GetMine(ctx, who, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.OrderNumber, stored.OrderNumber)
	require.Equal(t, "836.85", stored.Total.String())
	require.Equal(t, "priya@example.com", stored.UserEmail)
}

func TestPlaceOrderSnapshotsSurvivePriceChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	who := customer()
	chai := f.product(t, "Masala Chai", "99")
	f.add(t, who, chai, 3)

	order, err := f.svc.PlaceOrder(ctx, who)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", chai.ID).Update("price", "149").Error)

	stored, err := f.svc.GetMine(ctx, who, order.ID)
	require.NoError(t, err)
	require.Equal(t, "99.00", stored.Items[0].ProductPrice.String())
	require.Equal(t, "297.00", stored.Subtotal.String())
}

func TestPlaceOrderRequiresAuthenticationAndItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})

	_, err := f.svc.PlaceOrder(ctx, identity.Anonymous("sess-1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAuthRequired))

	_, err = f.svc.PlaceOrder(ctx, customer())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))
	require.Equal(t, int64(0), f.outboxCount(t, enums.EventOrderCreated))
}

func TestPlaceOrderRetriesOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	who := customer()
	f.add(t, who, f.product(t, "Murukku", "149"), 1)

	existing := identity.Authenticated("user-2", "ravi@example.com", "Ravi")
	f.add(t, existing, f.product(t, "Mysore Pak", "349"), 1)
	f.svc.nextNumber = func() (string, error) { return "AE-TAKEN", nil }
	_, err := f.svc.PlaceOrder(ctx, existing)
	require.NoError(t, err)

	numbers := []string{"AE-TAKEN", "AE-TAKEN", "AE-FRESH"}
	f.svc.nextNumber = func() (string, error) {
		n := numbers[0]
		numbers = numbers[1:]
		return n, nil
	}
	order, err := f.svc.PlaceOrder(ctx, who)
	require.NoError(t, err)
	require.Equal(t, "AE-FRESH", order.OrderNumber)
}

func TestPlaceOrderGivesUpAfterRepeatedCollisionsAndKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	first := identity.Authenticated("user-2", "ravi@example.com", "Ravi")
	f.add(t, first, f.product(t, "Kaju Katli", "449"), 1)
	f.svc.nextNumber = func() (string, error) { return "AE-TAKEN", nil }
	_, err := f.svc.PlaceOrder(ctx, first)
	require.NoError(t, err)

	who := customer()
	f.add(t, who, f.product(t, "Pulihora", "229"), 2)
	_, err = f.svc.PlaceOrder(ctx, who)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	cartView, err := f.carts.Get(ctx, who)
	require.NoError(t, err)
	require.Len(t, cartView.Items, 1)
	require.Equal(t, 2, cartView.Items[0].Quantity)
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderCreated))
}

func TestPlaceOrderStockGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{GateCheckoutStock: true})
	who := customer()
	biryani := f.product(t, "Hyderabadi Biryani", "399")
	f.add(t, who, biryani, 1)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", biryani.ID).Update("in_stock", false).Error)

	_, err := f.svc.PlaceOrder(ctx, who)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))
	typed := pkgerrors.As(err)
	require.Equal(t, "Hyderabadi Biryani is out of stock", typed.Message())

	cartView, err := f.carts.Get(ctx, who)
	require.NoError(t, err)
	require.Len(t, cartView.Items, 1)
}

func TestGetMineHidesOtherCustomersOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	who := customer()
	f.add(t, who, f.product(t, "Lemon Pickle", "249"), 1)
	order, err := f.svc.PlaceOrder(ctx, who)
	require.NoError(t, err)

	other := identity.Authenticated("user-9", "other@example.com", "Other")
	_, err = f.svc.GetMine(ctx, other, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	mine, err := f.svc.ListMine(ctx, who)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := f.svc.ListMine(ctx, other)
	require.NoError(t, err)
	require.Empty(t, theirs)

	_, err = f.svc.ListMine(ctx, identity.Anonymous("sess-1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAuthRequired))
}

func placeOne(t *testing.T, f orderFixture, who identity.Identity, name, price string) *OrderDTO {
	t.Helper()
	f.add(t, who, f.product(t, name, price), 1)
	order, err := f.svc.PlaceOrder(context.Background(), who)
	require.NoError(t, err)
	return order
}

func TestUpdateStatusNotifiesOnceAndEmitsEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	order := placeOne(t, f, customer(), "Gongura Pickle", "279")
	adminID := uuid.New()

	updated, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "confirmed", AdminID: adminID})
	require.NoError(t, err)
	require.Equal(t, "confirmed", updated.Status)
	require.NotNil(t, updated.StatusChangedAt)
	require.Equal(t, 1, f.notifier.count())
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderStatusChanged))

	sent := f.notifier.sent[0]
	require.Equal(t, "priya@example.com", sent.CustomerEmail)
	require.Equal(t, enums.OrderStatusConfirmed, sent.Status)
	require.Len(t, sent.Items, 1)

	// Same status again changes nothing.
	_, err = f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "CONFIRMED"})
	require.NoError(t, err)
	require.Equal(t, 1, f.notifier.count())
	require.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderStatusChanged))
}

func TestUpdateStatusPermissiveAllowsAnyMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	order := placeOne(t, f, customer(), "Podi Combo", "259")

	_, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "delivered"})
	require.NoError(t, err)
	updated, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, "pending", updated.Status)
	require.Equal(t, 2, f.notifier.count())
}

func TestUpdateStatusStrictRejectsSkips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{StrictTransitions: true})
	order := placeOne(t, f, customer(), "Filter Coffee", "179")

	_, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "ready"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 0, f.notifier.count())

	_, err = f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "cancelled"})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "confirmed"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateStatusValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})

	_, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: uuid.New(), Status: "shipped"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "Invalid status", pkgerrors.As(err).Message())

	_, err = f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: uuid.New(), Status: "ready"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatusSwallowsNotificationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	f.notifier.err = errors.New("queue full")
	order := placeOne(t, f, customer(), "Mysore Pak", "349")

	updated, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: order.ID, Status: "preparing"})
	require.NoError(t, err)
	require.Equal(t, "preparing", updated.Status)
}

func TestAdminListPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	names := []string{"A", "B", "C", "D", "E"}
	var placed []*OrderDTO
	for _, name := range names {
		who := identity.Authenticated("user-"+name, name+"@example.com", name)
		placed = append(placed, placeOne(t, f, who, "Item "+name, "100"))
	}
	_, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: placed[0].ID, Status: "delivered"})
	require.NoError(t, err)

	page, err := f.svc.AdminList(ctx, pagination.Params{Page: 1, Limit: 2}, "")
	require.NoError(t, err)
	require.Equal(t, int64(5), page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)

	delivered, err := f.svc.AdminList(ctx, pagination.Params{}, "delivered")
	require.NoError(t, err)
	require.Equal(t, int64(1), delivered.Total)
	require.Equal(t, placed[0].ID, delivered.Items[0].ID)
	require.Equal(t, pagination.DefaultLimit, delivered.Limit)

	all, err := f.svc.AdminList(ctx, pagination.Params{}, "all")
	require.NoError(t, err)
	require.Equal(t, int64(5), all.Total)

	_, err = f.svc.AdminList(ctx, pagination.Params{}, "lost")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStatsCountsAndRevenue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.OrdersConfig{})
	a := placeOne(t, f, identity.Authenticated("u1", "a@example.com", "A"), "Item A", "100")
	b := placeOne(t, f, identity.Authenticated("u2", "b@example.com", "B"), "Item B", "200")
	placeOne(t, f, identity.Authenticated("u3", "c@example.com", "C"), "Item C", "300")

	_, err := f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: a.ID, Status: "cancelled"})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, StatusUpdate{OrderID: b.ID, Status: "delivered"})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalOrders)
	require.Equal(t, int64(1), stats.PendingOrders)
	require.Equal(t, int64(1), stats.DeliveredOrders)
	require.Equal(t, int64(0), stats.ConfirmedOrders)
	require.Equal(t, int64(0), stats.TodayOrders)
	// 210.00 + 315.00, the cancelled 105.00 excluded.
	require.Equal(t, "525.00", stats.TotalRevenue.String())
}

func TestComputeTaxRoundsHalfAwayFromZero(t *testing.T) {
	rate := decimal.RequireFromString("0.05")
	require.Equal(t, "39.85", computeTax(decimal.RequireFromString("797"), rate).StringFixed(2))
	// 0.05 * 0.30 = 0.015 rounds up.
	require.Equal(t, "0.02", computeTax(decimal.RequireFromString("0.30"), rate).StringFixed(2))
	require.Equal(t, "0.00", computeTax(decimal.Zero, rate).StringFixed(2))
}
