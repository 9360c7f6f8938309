package models

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel tracks the available count per product.
type StockLevel struct {
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	AvailableQty      int       `gorm:"column:available_qty;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
