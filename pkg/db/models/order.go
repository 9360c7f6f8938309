package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
	"github.com/avelazquez/zocalo-backend/pkg/types"
)

// Order is the buyer-facing order aggregate. Money fields are snapshots taken
// at checkout and are immutable once the order is paid.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string              `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerUserID        uuid.UUID           `gorm:"column:buyer_user_id;type:uuid;not null;index"`
	Status             enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	RefundStatus       enums.RefundStatus  `gorm:"column:refund_status;type:text;not null;default:'none'"`
	Customer           types.CustomerInfo  `gorm:"column:customer;type:jsonb;serializer:json"`
	SubtotalCents      int64               `gorm:"column:subtotal_cents;not null"`
	DiscountCents      int64               `gorm:"column:discount_cents;not null;default:0"`
	ShippingFeeCents   int64               `gorm:"column:shipping_fee_cents;not null;default:0"`
	TotalCents         int64               `gorm:"column:total_cents;not null"`
	CommissionCents    int64               `gorm:"column:commission_cents;not null;default:0"`
	SellerRevenueCents int64               `gorm:"column:seller_revenue_cents;not null;default:0"`
	RefundedCents      int64               `gorm:"column:refunded_cents;not null;default:0"`
	// CouponCode is the code consumed at checkout, kept so cancellation can
	// re-credit the usage.
	CouponCode *string `gorm:"column:coupon_code"`
	Notes      *string `gorm:"column:notes"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	ShippedAt          *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	ReturnedAt         *time.Time          `gorm:"column:returned_at"`
	Items              []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Events             []OrderStatusEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
