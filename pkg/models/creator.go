package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatorStatus is the closed set of creator lifecycle states.
// Transitions between them are validated by the creators package; nothing
// writes these as free-form strings.
type CreatorStatus string

const (
	CreatorPending   CreatorStatus = "pending"
	CreatorApproved  CreatorStatus = "approved"
	CreatorSuspended CreatorStatus = "suspended"
	CreatorInactive  CreatorStatus = "inactive"
)

// Valid reports whether s is a known creator status
func (s CreatorStatus) Valid() bool {
	switch s {
	case CreatorPending, CreatorApproved, CreatorSuspended, CreatorInactive:
		return true
	}
	return false
}

// Tier is a creator performance band derived from trailing 30-day revenue.
// Informational only: it gates neither commission rate nor payout eligibility.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Creator is an affiliate program member
type Creator struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"display_name"`
	Email          string          `json:"email"`
	Status         CreatorStatus   `json:"status"`
	CommissionRate decimal.Decimal `json:"commission_rate"` // percent, 0-50
	MinimumPayout  decimal.Decimal `json:"minimum_payout"`  // currency units, >= 10
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails string          `json:"-"` // opaque, never serialized outward

	// Denormalized aggregates, reconciled from the event log by pkg/jobs
	TotalClicks     int             `json:"total_clicks"`
	TotalSales      int             `json:"total_sales"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	ConversionRate  float64         `json:"conversion_rate"`

	// Append-only audit notes
	Notes string `json:"notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	SuspendedAt *time.Time `json:"suspended_at,omitempty"`
}
