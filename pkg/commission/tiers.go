package commission

import (
	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/models"
)

// Tier band lower bounds, inclusive
var (
	silverFloor   = decimal.NewFromInt(1000)
	goldFloor     = decimal.NewFromInt(5000)
	platinumFloor = decimal.NewFromInt(10000)
)

// ClassifyTier maps trailing-30-day attributed revenue to a performance
// band. Lower bounds are inclusive and exact: 999.99 is bronze, 1000.00
// is silver.
func ClassifyTier(trailingRevenue decimal.Decimal) models.Tier {
	switch {
	case trailingRevenue.GreaterThanOrEqual(platinumFloor):
		return models.TierPlatinum
	case trailingRevenue.GreaterThanOrEqual(goldFloor):
		return models.TierGold
	case trailingRevenue.GreaterThanOrEqual(silverFloor):
		return models.TierSilver
	default:
		return models.TierBronze
	}
}
