package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// Promotion is a time-bounded discount rule scoped to a product, a set of
// categories, or the whole platform. Exactly one of Percent/AmountCents is set
// depending on Kind.
type Promotion struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    *uuid.UUID           `gorm:"column:seller_id;type:uuid;index"`
	Name        string               `gorm:"column:name;not null"`
	Kind        enums.PromotionKind  `gorm:"column:kind;type:text;not null"`
	Scope       enums.PromotionScope `gorm:"column:scope;type:text;not null"`
	Percent     *decimal.Decimal     `gorm:"column:percent;type:numeric(5,2)"`
	AmountCents *int64               `gorm:"column:amount_cents"`
	// MinPurchaseCents is the scoped subtotal floor below which the
	// promotion does not apply. Zero means no minimum.
	MinPurchaseCents int64 `gorm:"column:min_purchase_cents;not null;default:0"`
	// MaxDiscountCents caps a percentage discount. Only valid for the
	// percentage kind.
	MaxDiscountCents *int64     `gorm:"column:max_discount_cents"`
	ProductID        *uuid.UUID `gorm:"column:product_id;type:uuid"`
	Categories  pq.StringArray       `gorm:"column:categories;type:text[]"`
	ValidFrom   time.Time            `gorm:"column:valid_from;not null"`
	ValidUntil  time.Time            `gorm:"column:valid_until;not null"`
	IsActive    bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
