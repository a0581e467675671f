// Package payout evaluates payout eligibility and executes payouts
// against the commission ledger and the payment gateway.
package payout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
)

// Gateway disburses an approved payout to the creator. Implementations
// are external collaborators; calls must honor ctx deadlines.
type Gateway interface {
	Disburse(ctx context.Context, p *models.CreatorPayout) (gatewayRef string, err error)
}

// Service evaluates eligibility and creates payouts
type Service struct {
	store   *store.Store
	gateway Gateway
	log     logger.Logger
}

// NewService creates a new payout service
func NewService(st *store.Store, gateway Gateway, log logger.Logger) *Service {
	return &Service{store: st, gateway: gateway, log: log}
}

// Evaluate computes the creator's approved, unpaid balance against the
// creator's minimum payout
func (s *Service) Evaluate(ctx context.Context, creatorID string) (*models.Eligibility, error) {
	creator, err := s.store.GetCreator(ctx, creatorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError("creator")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	available, ids, err := s.store.SumApprovedByCreator(ctx, creatorID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	return &models.Eligibility{
		IsEligible:      available.GreaterThanOrEqual(creator.MinimumPayout),
		AvailableAmount: available,
		MinimumPayout:   creator.MinimumPayout,
		TransactionIDs:  ids,
	}, nil
}

// Create re-validates eligibility under a guarded claim and creates the
// payout. Evaluation followed by creation is check-then-act; the claim
// inside the store transaction closes that race, so of two simultaneous
// requests exactly one succeeds and the other re-evaluates against the
// remaining (smaller or zero) balance and fails with PAYOUT_NOT_ELIGIBLE.
//
// Transactions are marked paid atomically with the payout row. The
// gateway call happens after commit with its own timeout and bounded
// retries; if disbursement still fails, the payout is parked as failed
// for manual reconciliation, never silently retried forever.
func (s *Service) Create(ctx context.Context, creatorID string) (*models.CreatorPayout, error) {
	creator, err := s.store.GetCreator(ctx, creatorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError("creator")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	p := &models.CreatorPayout{
		ID:        uuid.NewString(),
		CreatorID: creator.ID,
		// Payment routing is copied from the creator at payout time.
		PaymentMethod:  creator.PaymentMethod,
		PaymentDetails: creator.PaymentDetails,
		PayoutDate:     time.Now().UTC(),
	}

	// One retry: a lost claim race means some approved transactions were
	// reassigned mid-claim; recompute against what is left.
	for attempt := 0; ; attempt++ {
		err = s.store.ClaimPayout(ctx, p, creator.MinimumPayout)
		if errors.Is(err, store.ErrConcurrentClaim) && attempt == 0 {
			continue
		}
		break
	}
	var notEligible *store.NotEligibleError
	if errors.As(err, &notEligible) {
		return nil, domain.NewPayoutNotEligibleError(
			notEligible.Available.StringFixed(2), notEligible.Minimum.StringFixed(2))
	}
	if errors.Is(err, store.ErrConcurrentClaim) {
		return nil, domain.NewConflictError("payout already in progress for this creator")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	s.log.Info("payout claimed",
		"payout_id", p.ID,
		"creator_id", creator.ID,
		"amount", p.Amount.StringFixed(2),
		"transactions", len(p.TransactionIDs))

	ref, err := s.gateway.Disburse(ctx, p)
	if err != nil {
		s.log.Error("payout disbursement failed; parking for manual reconciliation",
			"payout_id", p.ID, "error", err)
		if serr := s.store.SetPayoutOutcome(ctx, p.ID, models.PayoutFailed, "", err.Error()); serr != nil {
			return nil, domain.NewInternalError(serr)
		}
		p.Status = models.PayoutFailed
		p.FailureReason = err.Error()
		return p, nil
	}

	if err := s.store.SetPayoutOutcome(ctx, p.ID, models.PayoutCompleted, ref, ""); err != nil {
		return nil, domain.NewInternalError(err)
	}
	p.Status = models.PayoutCompleted
	p.GatewayRef = ref
	return p, nil
}
