package cart

import (
	"context"
	"fmt"

	"github.com/abhiruchieats/storefront-api/internal/identity"
	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/lock"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const reasonInvalidQuantity = "INVALID_QUANTITY"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes identity-scoped cart operations.
type Service interface {
	Get(ctx context.Context, who identity.Identity) (*CartDTO, error)
	Add(ctx context.Context, who identity.Identity, productID uuid.UUID, quantity *int) (*AddResult, error)
	Update(ctx context.Context, who identity.Identity, itemID uuid.UUID, quantity int) (*CartItemDTO, error)
	Remove(ctx context.Context, who identity.Identity, itemID uuid.UUID) error
	Clear(ctx context.Context, who identity.Identity) (int64, error)
	Merge(ctx context.Context, from, into identity.Identity) (*MergeResult, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	locker   lock.Locker
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, locker lock.Locker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	return &service{repo: repo, tx: tx, products: products, locker: locker, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, who identity.Identity) (*CartDTO, error) {
	if err := who.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByOwner(ctx, who.Kind(), who.OwnerKey())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	cart := NewCartDTO(items)
	return &cart, nil
}

// Add snapshots the product into the cart or increments the existing line.
func (s *service) Add(ctx context.Context, who identity.Identity, productID uuid.UUID, quantity *int) (*AddResult, error) {
	if err := who.Validate(); err != nil {
		return nil, err
	}
	qty := 1
	if quantity != nil {
		qty = *quantity
	}
	if qty <= 0 {
		return nil, invalidQuantity("Quantity must be a positive integer")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.InStock {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is out of stock", product.Name)).
			WithDetails(map[string]any{"productId": product.ID})
	}

	release, err := s.locker.Acquire(ctx, who.LockKey())
	if err != nil {
		return nil, err
	}
	defer release()

	candidate := snapshotLine(who, product, qty)
	var (
		stored   *models.CartItem
		inserted bool
	)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		stored, inserted, err = s.repo.WithTx(tx).UpsertIncrement(ctx, candidate)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}

	return &AddResult{Item: NewCartItemDTO(stored), Created: inserted}, nil
}

func (s *service) Update(ctx context.Context, who identity.Identity, itemID uuid.UUID, quantity int) (*CartItemDTO, error) {
	if err := who.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, invalidQuantity("Quantity must be at least 1")
	}

	release, err := s.locker.Acquire(ctx, who.LockKey())
	if err != nil {
		return nil, err
	}
	defer release()

	var item *models.CartItem
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		item, err = repo.FindOwned(ctx, who.Kind(), who.OwnerKey(), itemID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		item.Quantity = quantity
		item.TotalPrice = lineTotal(item.ProductPrice, quantity)
		if err := repo.UpdateQuantity(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	dto := NewCartItemDTO(item)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, who identity.Identity, itemID uuid.UUID) error {
	if err := who.Validate(); err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx, who.LockKey())
	if err != nil {
		return err
	}
	defer release()

	affected, err := s.repo.DeleteOwned(ctx, who.Kind(), who.OwnerKey(), itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, who identity.Identity) (int64, error) {
	if err := who.Validate(); err != nil {
		return 0, err
	}
	release, err := s.locker.Acquire(ctx, who.LockKey())
	if err != nil {
		return 0, err
	}
	defer release()

	affected, err := s.repo.DeleteByOwner(ctx, who.Kind(), who.OwnerKey())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return affected, nil
}

// Merge moves the anonymous session's lines into the signed-in cart. Lines
// for a product already in the target cart add their quantity to it; the
// target keeps its own snapshot price.
func (s *service) Merge(ctx context.Context, from, into identity.Identity) (*MergeResult, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if from.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merge source must be an anonymous session")
	}
	if err := into.RequireAuthenticated(); err != nil {
		return nil, err
	}

	release, err := lock.AcquireAll(ctx, s.locker, from.LockKey(), into.LockKey())
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		merged int
		items  []models.CartItem
	)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		source, err := repo.ListByOwner(ctx, from.Kind(), from.OwnerKey())
		if err != nil {
			return err
		}
		for i := range source {
			line := source[i]
			line.ID = uuid.New()
			line.OwnerKind = into.Kind()
			line.OwnerID = into.OwnerKey()
			if _, _, err := repo.UpsertIncrement(ctx, &line); err != nil {
				return err
			}
			merged++
		}
		if _, err := repo.DeleteByOwner(ctx, from.Kind(), from.OwnerKey()); err != nil {
			return err
		}
		items, err = repo.ListByOwner(ctx, into.Kind(), into.OwnerKey())
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge carts")
	}

	if s.logg != nil && merged > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{"merged_lines": merged, "user_id": into.UserID()})
		s.logg.Info(logCtx, "cart.merged")
	}
	return &MergeResult{Cart: NewCartDTO(items), MergedLines: merged}, nil
}

func snapshotLine(who identity.Identity, product *models.Product, qty int) *models.CartItem {
	return &models.CartItem{
		ID:                 uuid.New(),
		OwnerKind:          who.Kind(),
		OwnerID:            who.OwnerKey(),
		ProductID:          product.ID,
		ProductName:        product.Name,
		ProductDescription: product.Description,
		ProductPrice:       product.Price,
		ProductImageURL:    product.ImageURL,
		ProductCategory:    product.Category,
		Quantity:           qty,
		TotalPrice:         lineTotal(product.Price, qty),
	}
}

func invalidQuantity(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]any{"reason": reasonInvalidQuantity})
}
