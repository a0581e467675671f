// Package ledger owns commission transaction creation and status
// transitions. The one-transaction-per-order invariant lives here.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/attribution"
	"github.com/shiminize/creatorhub/pkg/commission"
	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
)

// Outcome is the result of recording a conversion report
type Outcome struct {
	Transaction  *models.CommissionTransaction
	Unattributed bool
	// Duplicate marks an idempotent replay: the stored record was
	// returned unchanged. Callers surface it as plain success.
	Duplicate bool
}

// Service is the transaction ledger
type Service struct {
	store    *store.Store
	resolver *attribution.Resolver
	log      logger.Logger
}

// NewService creates a new ledger service
func NewService(st *store.Store, resolver *attribution.Resolver, log logger.Logger) *Service {
	return &Service{store: st, resolver: resolver, log: log}
}

// RecordConversion processes a conversion report idempotently keyed on
// orderID. The first write wins: a replay returns the original record
// unchanged even when the amounts differ (the mismatch is logged as a
// warning, never failed). Unattributed orders are recorded as
// no-commission observations and create no transaction.
func (s *Service) RecordConversion(ctx context.Context, orderID string, orderAmount decimal.Decimal, sessionID string) (*Outcome, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("orderId is required")
	}
	if orderAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewValidationError("orderAmount must be positive")
	}

	// Fast path: the order was already observed.
	if out, err := s.replay(ctx, orderID, orderAmount); out != nil || err != nil {
		return out, err
	}

	now := time.Now().UTC()
	attr, err := s.resolver.Resolve(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}

	if attr == nil {
		return s.recordUnattributed(ctx, orderID, orderAmount, sessionID, now)
	}

	creator, err := s.store.GetCreator(ctx, attr.CreatorID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	txn := &models.CommissionTransaction{
		ID:          uuid.NewString(),
		CreatorID:   creator.ID,
		LinkID:      attr.LinkID,
		OrderID:     orderID,
		OrderAmount: orderAmount,
		// The creator's current rate, copied so later rate changes never
		// rewrite history.
		CommissionRate:   creator.CommissionRate,
		CommissionAmount: commission.Calculate(orderAmount, creator.CommissionRate),
		Status:           models.TransactionPending,
		CreatedAt:        now,
	}

	stored, created, err := s.store.CreateAttributedConversion(ctx, txn, sessionID)
	if errors.Is(err, store.ErrAlreadyObserved) {
		// Lost a race with another report for this order; the stored
		// outcome is authoritative.
		out, rerr := s.replay(ctx, orderID, orderAmount)
		if out == nil && rerr == nil {
			return nil, domain.NewInternalError(errors.New("order observed but not readable"))
		}
		return out, rerr
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	if !created {
		s.warnOnMismatch(orderID, stored.OrderAmount, orderAmount)
		return &Outcome{Transaction: stored, Duplicate: true}, nil
	}

	s.log.Info("commission recorded",
		"order_id", orderID,
		"creator_id", creator.ID,
		"link_id", attr.LinkID,
		"commission", stored.CommissionAmount.StringFixed(2))
	return &Outcome{Transaction: stored}, nil
}

// replay returns the stored outcome for an already observed order, or
// (nil, nil) when the order is new
func (s *Service) replay(ctx context.Context, orderID string, reportedAmount decimal.Decimal) (*Outcome, error) {
	ev, err := s.store.GetConversionEvent(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	s.warnOnMismatch(orderID, ev.OrderAmount, reportedAmount)

	if !ev.Attributed {
		return &Outcome{Unattributed: true, Duplicate: true}, nil
	}
	txn, err := s.store.GetTransaction(ctx, ev.TransactionID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return &Outcome{Transaction: txn, Duplicate: true}, nil
}

func (s *Service) recordUnattributed(ctx context.Context, orderID string, orderAmount decimal.Decimal, sessionID string, now time.Time) (*Outcome, error) {
	ev := &models.ConversionEvent{
		OrderID:     orderID,
		OrderAmount: orderAmount,
		SessionID:   sessionID,
		CreatedAt:   now,
	}
	created, err := s.store.InsertUnattributedEvent(ctx, ev)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !created {
		// Raced with another report; replay whatever won.
		out, rerr := s.replay(ctx, orderID, orderAmount)
		if out != nil || rerr != nil {
			return out, rerr
		}
	}
	s.log.Info("unattributed conversion recorded", "order_id", orderID, "session_id", sessionID)
	return &Outcome{Unattributed: true, Duplicate: !created}, nil
}

func (s *Service) warnOnMismatch(orderID string, stored, reported decimal.Decimal) {
	if !stored.Equal(reported) {
		s.log.Warn("duplicate conversion report with differing amount; first write wins",
			"order_id", orderID,
			"stored_amount", stored.StringFixed(2),
			"reported_amount", reported.StringFixed(2))
	}
}

// Approve moves a pending transaction to approved
func (s *Service) Approve(ctx context.Context, transactionID string) (*models.CommissionTransaction, error) {
	return s.transition(ctx, transactionID, models.TransactionPending, models.TransactionApproved)
}

// Reject moves a pending or approved transaction to rejected
// (fraud or chargeback). Rejected is terminal.
func (s *Service) Reject(ctx context.Context, transactionID string) (*models.CommissionTransaction, error) {
	txn, err := s.store.GetTransaction(ctx, transactionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError("transaction")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if txn.Status != models.TransactionPending && txn.Status != models.TransactionApproved {
		return nil, domain.NewInvalidTransitionError(string(txn.Status), string(models.TransactionRejected))
	}
	return s.transition(ctx, transactionID, txn.Status, models.TransactionRejected)
}

// transition applies a guarded status change. Paid and rejected are
// terminal; pending -> paid is not an edge (paid is reachable only via a
// payout claim).
func (s *Service) transition(ctx context.Context, id string, from, to models.TransactionStatus) (*models.CommissionTransaction, error) {
	ok, err := s.store.CompareAndSwapTransactionStatus(ctx, id, from, to)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !ok {
		txn, gerr := s.store.GetTransaction(ctx, id)
		if errors.Is(gerr, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("transaction")
		}
		if gerr != nil {
			return nil, domain.NewInternalError(gerr)
		}
		return nil, domain.NewInvalidTransitionError(string(txn.Status), string(to))
	}
	return s.store.GetTransaction(ctx, id)
}
