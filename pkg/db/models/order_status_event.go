package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// OrderStatusEvent is an append-only record of a fulfillment transition.
type OrderStatusEvent struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus  enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus    enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid"`
	ActorRole   enums.ActorRole   `gorm:"column:actor_role;type:text;not null"`
	Note        *string           `gorm:"column:note"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
