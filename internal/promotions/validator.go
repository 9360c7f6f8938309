package promotions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// LineRef describes the order line a promotion is matched against.
type LineRef struct {
	ProductID      uuid.UUID
	Category       string
	UnitPriceCents int64
	Qty            int
}

// CartRef is every line of the order. Minimum purchase thresholds are
// measured against the subtotal of the lines the promotion's scope reaches,
// not against the single line under evaluation.
type CartRef []LineRef

// Applied is the outcome of selecting a promotion for a line.
type Applied struct {
	Promotion     *models.Promotion
	DiscountCents int64
}

func matchesScope(promo *models.Promotion, line LineRef) bool {
	switch promo.Scope {
	case enums.PromotionScopePlatform:
		return true
	case enums.PromotionScopeProduct:
		return promo.ProductID != nil && *promo.ProductID == line.ProductID
	case enums.PromotionScopeCategory:
		for _, category := range promo.Categories {
			if category == line.Category {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (c CartRef) scopedSubtotalCents(promo *models.Promotion) int64 {
	var total int64
	for _, line := range c {
		if matchesScope(promo, line) {
			total += line.UnitPriceCents * int64(line.Qty)
		}
	}
	return total
}

// IsApplicable reports whether the promotion can touch this line at the given
// instant. Promotions that fail any check are silently skipped at application
// time; only creation rejects bad definitions. A nil cart falls back to the
// line itself for the minimum purchase check.
func IsApplicable(promo *models.Promotion, line LineRef, cart CartRef, at time.Time) bool {
	if promo == nil || !promo.IsActive {
		return false
	}
	if at.Before(promo.ValidFrom) || !at.Before(promo.ValidUntil) {
		return false
	}
	if !matchesScope(promo, line) {
		return false
	}
	if promo.MinPurchaseCents > 0 {
		if len(cart) == 0 {
			cart = CartRef{line}
		}
		if cart.scopedSubtotalCents(promo) < promo.MinPurchaseCents {
			return false
		}
	}
	return true
}

// DiscountFor computes the absolute discount in cents a promotion yields on a
// line. A fixed discount is applied once per line, not per unit. The result
// is clamped to the line subtotal; a promotion that cannot produce a positive
// discount yields zero.
func DiscountFor(promo *models.Promotion, line LineRef) int64 {
	if promo == nil || line.Qty <= 0 || line.UnitPriceCents <= 0 {
		return 0
	}
	subtotal := line.UnitPriceCents * int64(line.Qty)

	var discount int64
	switch promo.Kind {
	case enums.PromotionKindPercentage:
		if promo.Percent == nil {
			return 0
		}
		discount = promo.Percent.
			Mul(decimal.NewFromInt(subtotal)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if promo.MaxDiscountCents != nil && discount > *promo.MaxDiscountCents {
			discount = *promo.MaxDiscountCents
		}
	case enums.PromotionKindFixed:
		if promo.AmountCents == nil {
			return 0
		}
		discount = *promo.AmountCents
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// SelectBestDiscount picks the single promotion with the largest absolute
// discount for the line. Promotions never stack. Ties go to the promotion
// with the earliest validity start, then the lowest id, so selection is
// deterministic.
func SelectBestDiscount(promos []models.Promotion, line LineRef, cart CartRef, at time.Time) *Applied {
	var best *Applied
	for i := range promos {
		promo := &promos[i]
		if !IsApplicable(promo, line, cart, at) {
			continue
		}
		discount := DiscountFor(promo, line)
		if discount <= 0 {
			continue
		}
		if best == nil || discount > best.DiscountCents || (discount == best.DiscountCents && tieBreak(promo, best.Promotion)) {
			best = &Applied{Promotion: promo, DiscountCents: discount}
		}
	}
	return best
}

func tieBreak(candidate, incumbent *models.Promotion) bool {
	if candidate.ValidFrom.Before(incumbent.ValidFrom) {
		return true
	}
	if incumbent.ValidFrom.Before(candidate.ValidFrom) {
		return false
	}
	return candidate.ID.String() < incumbent.ID.String()
}
