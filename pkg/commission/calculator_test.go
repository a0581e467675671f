package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/shiminize/creatorhub/pkg/models"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{"Whole result", "100.00", "10", "10.00"},
		{"Rounds half up", "299.99", "10", "30.00"},
		{"Fractional rate", "125.99", "10", "12.60"},
		{"Sub-cent rounds up", "0.05", "10", "0.01"},
		{"Sub-cent rounds down", "0.04", "10", "0.00"},
		{"Zero rate", "500.00", "0", "0.00"},
		{"Max rate", "200.00", "50", "100.00"},
		{"Repeating decimal rate", "99.99", "33.33", "33.33"},
		{"Large order", "1000000.00", "12.5", "125000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			rate := decimal.RequireFromString(tt.rate)

			got := Calculate(amount, rate)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	amount := decimal.RequireFromString("299.99")
	rate := decimal.RequireFromString("10")

	first := Calculate(amount, rate)
	for i := 0; i < 100; i++ {
		assert.True(t, first.Equal(Calculate(amount, rate)))
	}
}

func TestClassifyTier(t *testing.T) {
	tests := []struct {
		revenue string
		want    models.Tier
	}{
		{"0", models.TierBronze},
		{"999.99", models.TierBronze},
		{"1000", models.TierSilver},
		{"1000.00", models.TierSilver},
		{"4999.99", models.TierSilver},
		{"5000", models.TierGold},
		{"9999.99", models.TierGold},
		{"10000", models.TierPlatinum},
		{"250000", models.TierPlatinum},
	}

	for _, tt := range tests {
		t.Run(tt.revenue, func(t *testing.T) {
			got := ClassifyTier(decimal.RequireFromString(tt.revenue))
			assert.Equal(t, tt.want, got)
		})
	}
}
