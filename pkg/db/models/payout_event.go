package models

import (
	"time"

	"github.com/google/uuid"
)

// Payout event types.
const (
	PayoutEventEarned   = "earned"
	PayoutEventReversed = "reversed"
)

// PayoutEvent records an immutable seller balance change derived from order
// lifecycle transitions. The pending payout is the sum over these rows.
type PayoutEvent struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	LineItemID  *uuid.UUID `gorm:"column:line_item_id;type:uuid"`
	Type        string     `gorm:"column:type;type:text;not null"`
	AmountCents int64      `gorm:"column:amount_cents;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
