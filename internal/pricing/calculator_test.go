package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		name   string
		volume int64
		want   enums.CommissionTier
	}{
		{name: "new seller", volume: 0, want: enums.CommissionTierBronze},
		{name: "just under silver", volume: 4_999_999, want: enums.CommissionTierBronze},
		{name: "silver boundary", volume: 5_000_000, want: enums.CommissionTierSilver},
		{name: "gold boundary", volume: 25_000_000, want: enums.CommissionTierGold},
		{name: "platinum boundary", volume: 100_000_000, want: enums.CommissionTierPlatinum},
		{name: "deep platinum", volume: 900_000_000, want: enums.CommissionTierPlatinum},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, TierFor(tc.volume))
		})
	}
}

func TestComputeLine(t *testing.T) {
	t.Run("bronze line with discount", func(t *testing.T) {
		result, err := ComputeLine(LineInput{
			UnitPriceCents: 10_000,
			Qty:            2,
			DiscountCents:  2_000,
			Tier:           enums.CommissionTierBronze,
		})
		require.NoError(t, err)
		require.Equal(t, int64(20_000), result.SubtotalCents)
		require.Equal(t, int64(18_000), result.NetCents)
		require.Equal(t, int64(1_440), result.CommissionCents)
		require.Equal(t, int64(16_560), result.SellerRevenueCents)
		require.Equal(t, int64(18_000), result.CommissionCents+result.SellerRevenueCents)
	})

	t.Run("minimum commission applies on small lines", func(t *testing.T) {
		result, err := ComputeLine(LineInput{
			UnitPriceCents: 1_000,
			Qty:            1,
			Tier:           enums.CommissionTierBronze,
		})
		require.NoError(t, err)
		// 8% of 1000 is 80, below the 500 floor.
		require.Equal(t, int64(500), result.CommissionCents)
		require.Equal(t, int64(500), result.SellerRevenueCents)
	})

	t.Run("commission capped at the line net", func(t *testing.T) {
		result, err := ComputeLine(LineInput{
			UnitPriceCents: 300,
			Qty:            1,
			Tier:           enums.CommissionTierBronze,
		})
		require.NoError(t, err)
		require.Equal(t, int64(300), result.CommissionCents)
		require.Equal(t, int64(0), result.SellerRevenueCents)
	})

	t.Run("discount exceeding subtotal clamps to zero net", func(t *testing.T) {
		result, err := ComputeLine(LineInput{
			UnitPriceCents: 1_000,
			Qty:            1,
			DiscountCents:  5_000,
			Tier:           enums.CommissionTierGold,
		})
		require.NoError(t, err)
		require.Equal(t, int64(0), result.NetCents)
		require.Equal(t, int64(0), result.CommissionCents)
		require.Equal(t, int64(0), result.SellerRevenueCents)
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		_, err := ComputeLine(LineInput{UnitPriceCents: 100, Qty: 0, Tier: enums.CommissionTierBronze})
		require.Error(t, err)
	})

	t.Run("unknown tier falls back to bronze", func(t *testing.T) {
		result, err := ComputeLine(LineInput{
			UnitPriceCents: 10_000,
			Qty:            1,
			Tier:           enums.CommissionTier("mystery"),
		})
		require.NoError(t, err)
		require.Equal(t, enums.CommissionTierBronze, result.CommissionTier)
		require.True(t, result.CommissionRate.Equal(decimal.RequireFromString("0.08")))
	})
}

func TestCommissionRevenueInvariant(t *testing.T) {
	tiers := []enums.CommissionTier{
		enums.CommissionTierBronze,
		enums.CommissionTierSilver,
		enums.CommissionTierGold,
		enums.CommissionTierPlatinum,
	}
	nets := []int64{1, 99, 100, 4_999, 5_000, 12_345, 99_999, 1_000_000}

	for _, tier := range tiers {
		for _, net := range nets {
			terms := TermsFor(tier)
			commission := CommissionFor(net, terms)
			require.GreaterOrEqual(t, commission, int64(0))
			require.LessOrEqual(t, commission, net)
			require.GreaterOrEqual(t, net-commission, int64(0))
		}
	}
}

func TestReverseCommission(t *testing.T) {
	t.Run("full refund reverses everything", func(t *testing.T) {
		require.Equal(t, int64(1_440), ReverseCommission(1_440, 18_000, 18_000))
	})

	t.Run("partial refund floors the share", func(t *testing.T) {
		// One of two units: 1440 * 9000 / 18000 = 720.
		require.Equal(t, int64(720), ReverseCommission(1_440, 18_000, 9_000))
		// Odd split floors instead of rounding up.
		require.Equal(t, int64(479), ReverseCommission(1_439, 18_000, 6_000))
	})

	t.Run("repeated partials never exceed the original", func(t *testing.T) {
		original := int64(1_439)
		net := int64(18_000)
		reversed := ReverseCommission(original, net, 6_000) +
			ReverseCommission(original, net, 6_000) +
			ReverseCommission(original, net, 6_000)
		require.LessOrEqual(t, reversed, original)
	})

	t.Run("zero refund reverses nothing", func(t *testing.T) {
		require.Equal(t, int64(0), ReverseCommission(1_440, 18_000, 0))
	})
}

func TestComputeOrderTotals(t *testing.T) {
	shipping := ShippingPolicy{FlatFeeCents: 500, FreeThresholdCents: 5_000_000}

	t.Run("multi seller order sums line results", func(t *testing.T) {
		totals, err := ComputeOrderTotals([]LineInput{
			{UnitPriceCents: 10_000, Qty: 2, DiscountCents: 2_000, Tier: enums.CommissionTierBronze},
			{UnitPriceCents: 50_000, Qty: 1, Tier: enums.CommissionTierGold},
		}, shipping)
		require.NoError(t, err)

		require.Equal(t, int64(70_000), totals.SubtotalCents)
		require.Equal(t, int64(2_000), totals.DiscountCents)
		require.Equal(t, int64(500), totals.ShippingFeeCents)
		require.Equal(t, int64(68_500), totals.TotalCents)
		// 1440 bronze + 2000 gold (4% of 50000).
		require.Equal(t, int64(3_440), totals.CommissionCents)
		require.Equal(t, totals.SubtotalCents-totals.DiscountCents,
			totals.CommissionCents+totals.SellerRevenueCents)
	})

	t.Run("free shipping over the threshold", func(t *testing.T) {
		totals, err := ComputeOrderTotals([]LineInput{
			{UnitPriceCents: 5_000_000, Qty: 1, Tier: enums.CommissionTierPlatinum},
		}, shipping)
		require.NoError(t, err)
		require.Equal(t, int64(0), totals.ShippingFeeCents)
		require.Equal(t, int64(5_000_000), totals.TotalCents)
	})

	t.Run("empty orders are rejected", func(t *testing.T) {
		_, err := ComputeOrderTotals(nil, shipping)
		require.Error(t, err)
	})
}
