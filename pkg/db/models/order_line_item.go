package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// OrderLineItem captures the priced snapshot of each item within an order.
// Commission is computed per line against the owning seller's tier at the
// moment of checkout.
type OrderLineItem struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	SellerID           uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	Name               string               `gorm:"column:name;not null"`
	SKU                string               `gorm:"column:sku;not null"`
	UnitPriceCents     int64                `gorm:"column:unit_price_cents;not null"`
	Qty                int                  `gorm:"column:qty;not null"`
	DiscountCents      int64                `gorm:"column:discount_cents;not null;default:0"`
	SubtotalCents      int64                `gorm:"column:subtotal_cents;not null"`
	AppliedPromotionID *uuid.UUID           `gorm:"column:applied_promotion_id;type:uuid"`
	CommissionTier     enums.CommissionTier `gorm:"column:commission_tier;type:text;not null"`
	CommissionRate     decimal.Decimal      `gorm:"column:commission_rate;type:numeric(6,4);not null"`
	CommissionCents    int64                `gorm:"column:commission_cents;not null"`
	SellerRevenueCents int64                `gorm:"column:seller_revenue_cents;not null"`
	RefundedQty        int                  `gorm:"column:refunded_qty;not null;default:0"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
