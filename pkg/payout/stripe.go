package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/transfer"
	"golang.org/x/time/rate"

	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/models"
)

const (
	disburseTimeout  = 15 * time.Second
	disburseAttempts = 3
	retryBackoff     = 2 * time.Second
)

// StripeGateway disburses payouts as Stripe transfers to the creator's
// connected account (the opaque payment details).
type StripeGateway struct {
	limiter *rate.Limiter
	log     logger.Logger
}

// NewStripeGateway configures the Stripe client
func NewStripeGateway(secretKey string, log logger.Logger) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		// Stripe allows far more, but payouts are rare; keep a gentle cap.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		log:     log,
	}
}

// Disburse executes the transfer with a per-call timeout and a bounded
// retry count. Exhausting retries returns the last error; the caller
// records the payout as failed for manual reconciliation.
func (g *StripeGateway) Disburse(ctx context.Context, p *models.CreatorPayout) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(p.Amount.Shift(2).IntPart()), // cents
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(p.PaymentDetails),
	}
	params.AddMetadata("payout_id", p.ID)
	params.AddMetadata("creator_id", p.CreatorID)
	// Stripe-side idempotency: the same payout id never transfers twice.
	params.IdempotencyKey = stripe.String("payout-" + p.ID)

	var lastErr error
	for attempt := 1; attempt <= disburseAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, disburseTimeout)
		params.Context = callCtx
		tr, err := transfer.New(params)
		cancel()
		if err == nil {
			return tr.ID, nil
		}

		lastErr = err
		g.log.Warn("stripe transfer attempt failed",
			"payout_id", p.ID, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return "", fmt.Errorf("stripe transfer failed after %d attempts: %w", disburseAttempts, lastErr)
}
