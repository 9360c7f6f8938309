package enums

import "fmt"

// PromotionKind distinguishes percentage and fixed-amount discounts.
type PromotionKind string

const (
	PromotionKindPercentage PromotionKind = "percentage"
	PromotionKindFixed      PromotionKind = "fixed"
)

// IsValid reports whether the value is a known PromotionKind.
func (p PromotionKind) IsValid() bool {
	return p == PromotionKindPercentage || p == PromotionKindFixed
}

// ParsePromotionKind converts raw input into a PromotionKind.
func ParsePromotionKind(value string) (PromotionKind, error) {
	switch PromotionKind(value) {
	case PromotionKindPercentage:
		return PromotionKindPercentage, nil
	case PromotionKindFixed:
		return PromotionKindFixed, nil
	}
	return "", fmt.Errorf("invalid promotion kind %q", value)
}

// PromotionScope bounds which line items a discount may touch.
type PromotionScope string

const (
	PromotionScopeProduct  PromotionScope = "product"
	PromotionScopeCategory PromotionScope = "category"
	PromotionScopePlatform PromotionScope = "platform"
)

// IsValid reports whether the value is a known PromotionScope.
func (p PromotionScope) IsValid() bool {
	switch p {
	case PromotionScopeProduct, PromotionScopeCategory, PromotionScopePlatform:
		return true
	}
	return false
}

// ParsePromotionScope converts raw input into a PromotionScope.
func ParsePromotionScope(value string) (PromotionScope, error) {
	switch PromotionScope(value) {
	case PromotionScopeProduct:
		return PromotionScopeProduct, nil
	case PromotionScopeCategory:
		return PromotionScopeCategory, nil
	case PromotionScopePlatform:
		return PromotionScopePlatform, nil
	}
	return "", fmt.Errorf("invalid promotion scope %q", value)
}
