package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// Seller represents a merchant account on the platform.
type Seller struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	DisplayName      string                     `gorm:"column:display_name;not null"`
	Email            string                     `gorm:"column:email;not null"`
	ApprovalStatus   enums.SellerApprovalStatus `gorm:"column:approval_status;type:text;not null;default:'pending'"`
	CommissionTier   enums.CommissionTier       `gorm:"column:commission_tier;type:text;not null;default:'bronze'"`
	SalesVolumeCents int64                      `gorm:"column:sales_volume_cents;not null;default:0"`
	ApprovedAt       *time.Time                 `gorm:"column:approved_at"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
