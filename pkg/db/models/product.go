package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// Product represents the canonical seller listing.
type Product struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	SKU                string              `gorm:"column:sku;not null"`
	Name               string              `gorm:"column:name;not null"`
	Description        *string             `gorm:"column:description"`
	Category           string              `gorm:"column:category;not null"`
	PriceCents         int64               `gorm:"column:price_cents;not null"`
	OriginalPriceCents *int64              `gorm:"column:original_price_cents"`
	Status             enums.ProductStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Stock              *StockLevel         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
