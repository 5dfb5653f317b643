package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/abhiruchieats/storefront-api/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, params pagination.Params, status *enums.OrderStatus) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, changedAt time.Time) error
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status enums.OrderStatus) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an orders repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func itemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the order row and then its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	return conn.Create(&order.Items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", itemsByPosition).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns a customer's orders, newest first.
func (r *repository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List pages through all orders, newest first, optionally narrowed to one status.
func (r *repository) List(ctx context.Context, params pagination.Params, status *enums.OrderStatus) ([]models.Order, int64, error) {
	params = params.Normalize()

	base := r.db.WithContext(ctx).Model(&models.Order{})
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	if err := base.Session(&gorm.Session{}).
		Preload("Items", itemsByPosition).
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, changedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            status,
			"status_changed_at": changedAt,
			"updated_at":        changedAt,
		}).Error
}

func (r *repository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}

func (r *repository) CountByStatus(ctx context.Context, status enums.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *repository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

// Revenue sums order totals, leaving out cancelled orders.
func (r *repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	row := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("status <> ?", enums.OrderStatusCancelled).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}
