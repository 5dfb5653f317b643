package product

import (
	"context"

	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns products newest first, optionally filtered by category.
func (r *Repository) List(ctx context.Context, category *enums.ProductCategory) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if category != nil {
		query = query.Where("category = ?", *category)
	}
	var products []models.Product
	if err := query.Order("created_at DESC").Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the products that still exist among ids.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes every column of an existing product.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes the product and reports how many rows were affected.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// SetStock flips the in_stock flag.
func (r *Repository) SetStock(ctx context.Context, id uuid.UUID, inStock bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("in_stock", inStock)
	return res.RowsAffected, res.Error
}

// ExistingNames returns which of names are already in the catalog.
func (r *Repository) ExistingNames(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("name IN ?", names).
		Pluck("name", &found).Error; err != nil {
		return nil, err
	}
	for _, name := range found {
		out[name] = struct{}{}
	}
	return out, nil
}
