package cart

import (
	"context"
	"time"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByOwner(ctx context.Context, kind enums.OwnerKind, ownerID string) ([]models.CartItem, error)
	FindOwned(ctx context.Context, kind enums.OwnerKind, ownerID string, itemID uuid.UUID) (*models.CartItem, error)
	UpsertIncrement(ctx context.Context, item *models.CartItem) (*models.CartItem, bool, error)
	UpdateQuantity(ctx context.Context, item *models.CartItem) error
	DeleteOwned(ctx context.Context, kind enums.OwnerKind, ownerID string, itemID uuid.UUID) (int64, error)
	DeleteByOwner(ctx context.Context, kind enums.OwnerKind, ownerID string) (int64, error)
}

// Repository persists cart line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByOwner returns the owner's lines in the order they were added.
func (r *Repository) ListByOwner(ctx context.Context, kind enums.OwnerKind, ownerID string) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", kind, ownerID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOwned loads a line only when it belongs to the owner.
func (r *Repository) FindOwned(ctx context.Context, kind enums.OwnerKind, ownerID string, itemID uuid.UUID) (*models.CartItem, error) {
	var row models.CartItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_kind = ? AND owner_id = ?", itemID, kind, ownerID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) findByOwnerProduct(ctx context.Context, kind enums.OwnerKind, ownerID string, productID uuid.UUID) (*models.CartItem, error) {
	var row models.CartItem
	if err := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ? AND product_id = ?", kind, ownerID, productID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertIncrement inserts the line or, when (owner, product) already exists,
// adds item.Quantity to the stored quantity. The stored snapshot is kept on
// conflict and total_price is recomputed from it. inserted reports whether a
// new line was created. Callers hold the owner's cart lock, so the existence
// check cannot race another writer for the same owner.
func (r *Repository) UpsertIncrement(ctx context.Context, item *models.CartItem) (*models.CartItem, bool, error) {
	tx := r.db.WithContext(ctx)

	var existing int64
	if err := tx.Model(&models.CartItem{}).
		Where("owner_kind = ? AND owner_id = ? AND product_id = ?", item.OwnerKind, item.OwnerID, item.ProductID).
		Count(&existing).Error; err != nil {
		return nil, false, err
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_kind"}, {Name: "owner_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", item.Quantity),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, false, err
	}

	stored, err := r.findByOwnerProduct(ctx, item.OwnerKind, item.OwnerID, item.ProductID)
	if err != nil {
		return nil, false, err
	}
	stored.TotalPrice = lineTotal(stored.ProductPrice, stored.Quantity)
	if err := tx.Model(&models.CartItem{}).
		Where("id = ?", stored.ID).
		UpdateColumn("total_price", stored.TotalPrice).Error; err != nil {
		return nil, false, err
	}
	return stored, existing == 0, nil
}

// UpdateQuantity writes quantity and total_price for an owned line.
func (r *Repository) UpdateQuantity(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND owner_kind = ? AND owner_id = ?", item.ID, item.OwnerKind, item.OwnerID).
		Updates(map[string]any{
			"quantity":    item.Quantity,
			"total_price": item.TotalPrice,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *Repository) DeleteOwned(ctx context.Context, kind enums.OwnerKind, ownerID string, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_kind = ? AND owner_id = ?", itemID, kind, ownerID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteByOwner(ctx context.Context, kind enums.OwnerKind, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", kind, ownerID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteStaleSessionLines drops anonymous-session lines untouched since
// cutoff. Signed-in carts are never expired.
func (r *Repository) DeleteStaleSessionLines(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("owner_kind = ? AND updated_at < ?", enums.OwnerKindSession, cutoff).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
