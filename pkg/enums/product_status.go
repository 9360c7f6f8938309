package enums

import "fmt"

// ProductStatus is derived from stock except for the explicit discontinued state.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusOutOfStock   ProductStatus = "out_of_stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusOutOfStock,
	ProductStatusDiscontinued,
}

// IsValid reports whether the value is a known ProductStatus.
func (p ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
