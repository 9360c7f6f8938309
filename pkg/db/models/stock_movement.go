package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// StockMovement records an immutable audit entry for every stock change.
type StockMovement struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Delta       int                       `gorm:"column:delta;not null"`
	QtyAfter    int                       `gorm:"column:qty_after;not null"`
	Reason      enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	OrderID     *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	ActorUserID *uuid.UUID                `gorm:"column:actor_user_id;type:uuid"`
	Note        *string                   `gorm:"column:note"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
