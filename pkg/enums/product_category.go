package enums

import "fmt"

// ProductCategory buckets catalog listings for storefront filtering.
type ProductCategory string

const (
	ProductCategoryMen          ProductCategory = "men"
	ProductCategoryWomens       ProductCategory = "womens"
	ProductCategoryCombo        ProductCategory = "combo"
	ProductCategoryShirtCombo   ProductCategory = "shirt-combo"
	ProductCategoryPanjabiCombo ProductCategory = "panjabi-combo"
	ProductCategoryShirts       ProductCategory = "shirts"
	ProductCategoryPanjabi      ProductCategory = "panjabi"
)

var validProductCategories = []ProductCategory{
	ProductCategoryMen,
	ProductCategoryWomens,
	ProductCategoryCombo,
	ProductCategoryShirtCombo,
	ProductCategoryPanjabiCombo,
	ProductCategoryShirts,
	ProductCategoryPanjabi,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the category is recognized.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts a raw string into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
