package product

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	productNameConstraint = "ux_products_name"
	maxNameLen            = 100
	maxDescriptionLen     = 500
)

// Service exposes catalog reads and admin catalog maintenance.
type Service interface {
	List(ctx context.Context, category string) ([]ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStock(ctx context.Context, id uuid.UUID, inStock bool) (*ProductDTO, error)
	Seed(ctx context.Context, inputs []CreateProductInput) (int, error)
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	InStock     *bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	ImageURL    *string
	InStock     *bool
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, category string) ([]ProductDTO, error) {
	filter, err := parseCategoryFilter(category)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return newProductDTOs(products), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		InStock:     true,
	}
	if input.InStock != nil {
		product.InStock = *input.InStock
	}

	category, err := validateFields(product.Name, product.Description, product.ImageURL, input.Category, product.Price)
	if err != nil {
		return nil, err
	}
	product.Category = category

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err, "insert product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	category := string(product.Category)
	applyUpdate(product, input, &category)

	validated, err := validateFields(product.Name, product.Description, product.ImageURL, category, product.Price)
	if err != nil {
		return nil, err
	}
	product.Category = validated

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, mapWriteError(err, "update product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return nil
}

func (s *service) SetStock(ctx context.Context, id uuid.UUID, inStock bool) (*ProductDTO, error) {
	affected, err := s.repo.SetStock(ctx, id, inStock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return s.Get(ctx, id)
}

// Seed creates the given products, skipping names already in the catalog.
func (s *service) Seed(ctx context.Context, inputs []CreateProductInput) (int, error) {
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		names = append(names, strings.TrimSpace(in.Name))
	}
	existing, err := s.repo.ExistingNames(ctx, names)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load existing product names")
	}

	created := 0
	for _, in := range inputs {
		if _, ok := existing[strings.TrimSpace(in.Name)]; ok {
			continue
		}
		if _, err := s.Create(ctx, in); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeDuplicate) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// parseCategoryFilter treats "" and "all" as no filter.
func parseCategoryFilter(raw string) (*enums.ProductCategory, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "all") {
		return nil, nil
	}
	category, err := enums.ParseProductCategory(trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid category").
			WithDetails(map[string]any{"category": raw, "allowed": enums.ProductCategories()})
	}
	return &category, nil
}

func validateFields(name, description, imageURL, rawCategory string, price decimal.Decimal) (enums.ProductCategory, error) {
	missing := []string{}
	if name == "" {
		missing = append(missing, "name")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(rawCategory) == "" {
		missing = append(missing, "category")
	}
	if imageURL == "" {
		missing = append(missing, "imageUrl")
	}
	if len(missing) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "All fields are required").
			WithDetails(map[string]any{"missing": missing})
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Product name cannot exceed 100 characters")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Product description cannot exceed 500 characters")
	}
	if !price.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Price must be greater than 0")
	}
	category, err := enums.ParseProductCategory(rawCategory)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid category").
			WithDetails(map[string]any{"allowed": enums.ProductCategories()})
	}
	return category, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput, category *string) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.Category != nil {
		*category = *input.Category
	}
	if input.InStock != nil {
		product.InStock = *input.InStock
	}
}

func mapWriteError(err error, op string) error {
	if db.IsUniqueViolation(err, productNameConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "Product with this name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
