package enums

import "fmt"

// SellerApprovalStatus gates whether a seller's products can be sold.
type SellerApprovalStatus string

const (
	SellerApprovalPending  SellerApprovalStatus = "pending"
	SellerApprovalApproved SellerApprovalStatus = "approved"
	SellerApprovalRejected SellerApprovalStatus = "rejected"
)

var validSellerApprovalStatuses = []SellerApprovalStatus{
	SellerApprovalPending,
	SellerApprovalApproved,
	SellerApprovalRejected,
}

// IsValid reports whether the value is a known SellerApprovalStatus.
func (s SellerApprovalStatus) IsValid() bool {
	for _, candidate := range validSellerApprovalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerApprovalStatus converts raw input into a SellerApprovalStatus.
func ParseSellerApprovalStatus(value string) (SellerApprovalStatus, error) {
	for _, candidate := range validSellerApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller approval status %q", value)
}
