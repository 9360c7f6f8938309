package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
)

// Tier thresholds are lifetime sales volume in cents.
const (
	silverThresholdCents   int64 = 5_000_000
	goldThresholdCents     int64 = 25_000_000
	platinumThresholdCents int64 = 100_000_000
)

// TierTerms holds the commission rate and the per-line floor for a tier.
type TierTerms struct {
	Tier         enums.CommissionTier
	Rate         decimal.Decimal
	MinimumCents int64
}

var tierTerms = map[enums.CommissionTier]TierTerms{
	enums.CommissionTierBronze: {
		Tier:         enums.CommissionTierBronze,
		Rate:         decimal.RequireFromString("0.08"),
		MinimumCents: 500,
	},
	enums.CommissionTierSilver: {
		Tier:         enums.CommissionTierSilver,
		Rate:         decimal.RequireFromString("0.06"),
		MinimumCents: 300,
	},
	enums.CommissionTierGold: {
		Tier:         enums.CommissionTierGold,
		Rate:         decimal.RequireFromString("0.04"),
		MinimumCents: 200,
	},
	enums.CommissionTierPlatinum: {
		Tier:         enums.CommissionTierPlatinum,
		Rate:         decimal.RequireFromString("0.03"),
		MinimumCents: 100,
	},
}

// TierFor maps lifetime sales volume to a commission tier.
func TierFor(salesVolumeCents int64) enums.CommissionTier {
	switch {
	case salesVolumeCents >= platinumThresholdCents:
		return enums.CommissionTierPlatinum
	case salesVolumeCents >= goldThresholdCents:
		return enums.CommissionTierGold
	case salesVolumeCents >= silverThresholdCents:
		return enums.CommissionTierSilver
	default:
		return enums.CommissionTierBronze
	}
}

// TermsFor returns the rate and minimum for a tier. Unknown tiers fall back to
// bronze so a bad snapshot never produces a zero commission.
func TermsFor(tier enums.CommissionTier) TierTerms {
	if terms, ok := tierTerms[tier]; ok {
		return terms
	}
	return tierTerms[enums.CommissionTierBronze]
}
