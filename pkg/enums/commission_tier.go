package enums

// CommissionTier classifies a seller by lifetime sales volume.
type CommissionTier string

const (
	CommissionTierBronze   CommissionTier = "bronze"
	CommissionTierSilver   CommissionTier = "silver"
	CommissionTierGold     CommissionTier = "gold"
	CommissionTierPlatinum CommissionTier = "platinum"
)

// IsValid reports whether the value is a known CommissionTier.
func (c CommissionTier) IsValid() bool {
	switch c {
	case CommissionTierBronze, CommissionTierSilver, CommissionTierGold, CommissionTierPlatinum:
		return true
	}
	return false
}
