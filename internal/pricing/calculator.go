package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// LineInput is one priced order line before commission.
type LineInput struct {
	UnitPriceCents int64
	Qty            int
	DiscountCents  int64
	Tier           enums.CommissionTier
}

// LineResult carries the money breakdown for one line. SubtotalCents is the
// gross line amount, NetCents the amount after discount, and
// CommissionCents + SellerRevenueCents always sum to NetCents.
type LineResult struct {
	SubtotalCents      int64
	NetCents           int64
	DiscountCents      int64
	CommissionTier     enums.CommissionTier
	CommissionRate     decimal.Decimal
	CommissionCents    int64
	SellerRevenueCents int64
}

// ShippingPolicy prices the flat shipping fee with a free-shipping threshold.
type ShippingPolicy struct {
	FlatFeeCents       int64
	FreeThresholdCents int64
}

// OrderTotals aggregates line results plus shipping.
type OrderTotals struct {
	SubtotalCents      int64
	DiscountCents      int64
	ShippingFeeCents   int64
	TotalCents         int64
	CommissionCents    int64
	SellerRevenueCents int64
	Lines              []LineResult
}

// ComputeLine prices a single line and computes the platform commission
// against the seller tier captured at checkout time.
func ComputeLine(in LineInput) (LineResult, error) {
	if in.Qty <= 0 {
		return LineResult{}, fmt.Errorf("qty must be positive, got %d", in.Qty)
	}
	if in.UnitPriceCents < 0 {
		return LineResult{}, fmt.Errorf("unit price must not be negative, got %d", in.UnitPriceCents)
	}

	subtotal := in.UnitPriceCents * int64(in.Qty)

	discount := in.DiscountCents
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	net := subtotal - discount

	terms := TermsFor(in.Tier)
	commission := CommissionFor(net, terms)

	return LineResult{
		SubtotalCents:      subtotal,
		NetCents:           net,
		DiscountCents:      discount,
		CommissionTier:     terms.Tier,
		CommissionRate:     terms.Rate,
		CommissionCents:    commission,
		SellerRevenueCents: net - commission,
	}, nil
}

// CommissionFor computes max(rate*net, minimum), capped at net so the seller
// revenue never goes negative. A zero net line carries zero commission.
func CommissionFor(netCents int64, terms TierTerms) int64 {
	if netCents <= 0 {
		return 0
	}
	commission := terms.Rate.
		Mul(decimal.NewFromInt(netCents)).
		Round(0).
		IntPart()
	if commission < terms.MinimumCents {
		commission = terms.MinimumCents
	}
	if commission > netCents {
		commission = netCents
	}
	return commission
}

// ReverseCommission returns the commission share to reverse when refundNet of
// the original originalNet is refunded. The share is floored so repeated
// partial reversals never exceed the original commission.
func ReverseCommission(originalCommissionCents, originalNetCents, refundNetCents int64) int64 {
	if originalNetCents <= 0 || refundNetCents <= 0 {
		return 0
	}
	if refundNetCents >= originalNetCents {
		return originalCommissionCents
	}
	return originalCommissionCents * refundNetCents / originalNetCents
}

// ComputeOrderTotals prices every line and applies the shipping policy to the
// discounted merchandise total.
func ComputeOrderTotals(lines []LineInput, shipping ShippingPolicy) (*OrderTotals, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("at least one line is required")
	}

	totals := &OrderTotals{Lines: make([]LineResult, 0, len(lines))}
	for i, line := range lines {
		result, err := ComputeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		totals.SubtotalCents += result.SubtotalCents
		totals.DiscountCents += result.DiscountCents
		totals.CommissionCents += result.CommissionCents
		totals.SellerRevenueCents += result.SellerRevenueCents
		totals.Lines = append(totals.Lines, result)
	}

	merchandise := totals.SubtotalCents - totals.DiscountCents
	if shipping.FlatFeeCents > 0 && merchandise < shipping.FreeThresholdCents {
		totals.ShippingFeeCents = shipping.FlatFeeCents
	}
	totals.TotalCents = merchandise + totals.ShippingFeeCents

	return totals, nil
}
