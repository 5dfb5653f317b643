package enums

import (
	"fmt"
	"strings"
)

// ProductCategory represents the closed set of menu categories.
type ProductCategory string

const (
	ProductCategoryPickles    ProductCategory = "Pickles"
	ProductCategorySnacks     ProductCategory = "Snacks"
	ProductCategorySweets     ProductCategory = "Sweets"
	ProductCategoryBeverages  ProductCategory = "Beverages"
	ProductCategoryMainCourse ProductCategory = "Main Course"
	ProductCategoryOther      ProductCategory = "Other"
)

var validProductCategories = []ProductCategory{
	ProductCategoryPickles,
	ProductCategorySnacks,
	ProductCategorySweets,
	ProductCategoryBeverages,
	ProductCategoryMainCourse,
	ProductCategoryOther,
}

// ProductCategories returns the categories in menu order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory. Matching is
// case-insensitive so query strings like "main course" resolve.
func ParseProductCategory(value string) (ProductCategory, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validProductCategories {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
