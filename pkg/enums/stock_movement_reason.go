package enums

// StockMovementReason labels entries in the per-product stock audit log.
type StockMovementReason string

const (
	StockReasonOrderPlaced    StockMovementReason = "order_placed"
	StockReasonOrderCancelled StockMovementReason = "order_cancelled"
	StockReasonOrderReturned  StockMovementReason = "order_returned"
	StockReasonManualSet      StockMovementReason = "manual_set"
	StockReasonRestock        StockMovementReason = "restock"
)

func (s StockMovementReason) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMovementReason.
func (s StockMovementReason) IsValid() bool {
	switch s {
	case StockReasonOrderPlaced, StockReasonOrderCancelled, StockReasonOrderReturned,
		StockReasonManualSet, StockReasonRestock:
		return true
	}
	return false
}
