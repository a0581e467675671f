// Package testdata generates realistic fixtures for tests and seeds.
package testdata

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/models"
)

// NewCreator returns a plausible creator in the given status
func NewCreator(status models.CreatorStatus) *models.Creator {
	now := time.Now().UTC()
	c := &models.Creator{
		ID:              uuid.NewString(),
		DisplayName:     gofakeit.Name(),
		Email:           gofakeit.Email(),
		Status:          status,
		CommissionRate:  decimal.NewFromInt(int64(gofakeit.Number(5, 20))),
		MinimumPayout:   decimal.NewFromInt(50),
		PaymentMethod:   gofakeit.RandomString([]string{"paypal", "bank_transfer", "stripe"}),
		PaymentDetails:  gofakeit.UUID(),
		TotalCommission: decimal.Zero,
		CreatedAt:       now,
	}
	if status == models.CreatorApproved || status == models.CreatorSuspended {
		t := now.Add(-time.Hour)
		c.ApprovedAt = &t
	}
	if status == models.CreatorSuspended {
		t := now.Add(-time.Minute)
		c.SuspendedAt = &t
	}
	return c
}

// NewLink returns a link owned by the creator
func NewLink(creatorID string, active bool) *models.ReferralLink {
	return &models.ReferralLink{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Code:      fmt.Sprintf("%08x", gofakeit.Uint32()),
		IsActive:  active,
		CreatedAt: time.Now().UTC(),
	}
}

// NewClick returns a click on the link at the given time
func NewClick(link *models.ReferralLink, sessionID string, at time.Time) *models.ReferralClick {
	return &models.ReferralClick{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		CreatorID: link.CreatorID,
		SessionID: sessionID,
		IPAddress: gofakeit.IPv4Address(),
		UserAgent: gofakeit.UserAgent(),
		Referrer:  gofakeit.URL(),
		ClickedAt: at.UTC(),
	}
}
