package enums

import "fmt"

// ProductSort orders the public catalog listing.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
)

// ParseProductSort converts raw input into a ProductSort. Empty input means newest.
func ParseProductSort(value string) (ProductSort, error) {
	switch ProductSort(value) {
	case "", ProductSortNewest:
		return ProductSortNewest, nil
	case ProductSortPriceAsc, ProductSortPriceDesc:
		return ProductSort(value), nil
	}
	return "", fmt.Errorf("invalid sort %q", value)
}
