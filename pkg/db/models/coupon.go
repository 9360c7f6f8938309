package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon binds a redeemable code to a promotion with a bounded usage count.
type Coupon struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code        string    `gorm:"column:code;not null;uniqueIndex"`
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;not null"`
	MaxUsage    int       `gorm:"column:max_usage;not null"`
	UsedCount   int       `gorm:"column:used_count;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
