package payout

import (
	"context"

	"github.com/shiminize/creatorhub/pkg/models"
)

// NopGateway completes payouts without contacting a payment provider.
// Used when no Stripe key is configured; disbursement happens out of band
// and the gateway reference marks the payout for manual settlement.
type NopGateway struct{}

func (NopGateway) Disburse(_ context.Context, p *models.CreatorPayout) (string, error) {
	return "manual-" + p.ID, nil
}
