package enums

// RefundStatus tracks how much of an order has been refunded.
type RefundStatus string

const (
	RefundStatusNone    RefundStatus = "none"
	RefundStatusPartial RefundStatus = "partial"
	RefundStatusFull    RefundStatus = "full"
)

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	switch r {
	case RefundStatusNone, RefundStatusPartial, RefundStatusFull:
		return true
	}
	return false
}
