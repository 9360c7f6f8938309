package models

import (
	"time"

	"github.com/google/uuid"
)

// Refund records money returned to the buyer together with the commission
// reversed from the platform side.
type Refund struct {
	ID                      uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID                 uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	LineItemID              *uuid.UUID `gorm:"column:line_item_id;type:uuid"`
	Qty                     int        `gorm:"column:qty;not null;default:0"`
	AmountCents             int64      `gorm:"column:amount_cents;not null"`
	CommissionReversedCents int64      `gorm:"column:commission_reversed_cents;not null"`
	Reason                  string     `gorm:"column:reason;not null"`
	ActorUserID             *uuid.UUID `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
}
