package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	SellerID *uuid.UUID
}

// OrderFilters narrows order listings.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// OrderList is one page of orders with the cursor for the next page.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// TransitionInput captures a fulfillment status change request.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   Actor
	Note    *string
}

// CancelInput captures an order cancellation request.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// ReturnInput captures a return of a delivered order. When LineItemID is set
// only Qty units of that line are returned; otherwise the whole order is.
type ReturnInput struct {
	OrderID    uuid.UUID
	Actor      Actor
	Reason     string
	LineItemID *uuid.UUID
	Qty        int
}

// LineCommission is the per-line slice of the commission breakdown.
type LineCommission struct {
	LineItemID         uuid.UUID            `json:"line_item_id"`
	SellerID           uuid.UUID            `json:"seller_id"`
	CommissionTier     enums.CommissionTier `json:"commission_tier"`
	CommissionRate     decimal.Decimal      `json:"commission_rate"`
	NetCents           int64                `json:"net_cents"`
	CommissionCents    int64                `json:"commission_cents"`
	SellerRevenueCents int64                `json:"seller_revenue_cents"`
}

// CommissionBreakdown summarizes how an order's money splits between the
// platform and its sellers.
type CommissionBreakdown struct {
	OrderID            uuid.UUID        `json:"order_id"`
	SubtotalCents      int64            `json:"subtotal_cents"`
	DiscountCents      int64            `json:"discount_cents"`
	CommissionCents    int64            `json:"commission_cents"`
	SellerRevenueCents int64            `json:"seller_revenue_cents"`
	Lines              []LineCommission `json:"lines"`
}
