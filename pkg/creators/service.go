// Package creators owns the creator lifecycle: application, the status
// state machine, administrative bulk operations, and the admin list view.
package creators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/commission"
	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/links"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
)

const trailingWindow = 30 * 24 * time.Hour

var (
	maxRate          = decimal.NewFromInt(50)
	minMinimumPayout = decimal.NewFromInt(10)
)

// Service manages creators
type Service struct {
	store *store.Store
	links *links.Service
	log   logger.Logger

	defaultRate          decimal.Decimal
	defaultMinimumPayout decimal.Decimal
}

// NewService creates a new creator service
func NewService(st *store.Store, linkRegistry *links.Service, log logger.Logger, defaultRate, defaultMinimumPayout decimal.Decimal) *Service {
	return &Service{
		store:                st,
		links:                linkRegistry,
		log:                  log,
		defaultRate:          defaultRate,
		defaultMinimumPayout: defaultMinimumPayout,
	}
}

// Apply registers a new creator application as pending and issues a
// default referral link
func (s *Service) Apply(ctx context.Context, req models.ApplyRequest) (*models.Creator, *models.ReferralLink, error) {
	creator := &models.Creator{
		ID:              uuid.NewString(),
		DisplayName:     req.DisplayName,
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Status:          models.CreatorPending,
		CommissionRate:  s.defaultRate,
		MinimumPayout:   s.defaultMinimumPayout,
		PaymentMethod:   req.PaymentMethod,
		PaymentDetails:  req.PaymentDetails,
		TotalCommission: decimal.Zero,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.InsertCreator(ctx, creator); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, nil, domain.NewConflictError("a creator with this email already exists")
		}
		return nil, nil, domain.NewInternalError(err)
	}

	link, err := s.links.Create(ctx, creator.ID, req.ProductID)
	if err != nil {
		return nil, nil, err
	}
	return creator, link, nil
}

// Get fetches a creator by id
func (s *Service) Get(ctx context.Context, id string) (*models.Creator, error) {
	creator, err := s.store.GetCreator(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError("creator")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return creator, nil
}

// Transition applies one status-machine action to one creator. The edge
// lookup and the guarded write make concurrent admin actions safe without
// a lock: whoever loses the compare-and-swap gets
// INVALID_STATUS_TRANSITION, same as a stale request.
func (s *Service) Transition(ctx context.Context, creatorID string, action Action, note string) (*models.Creator, error) {
	creator, err := s.Get(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	tr := findTransition(action, creator.Status)
	if tr == nil {
		return nil, domain.NewInvalidTransitionError(string(creator.Status), transitionTarget(action))
	}

	now := time.Now().UTC()
	var approvedAt, suspendedAt *time.Time
	clearSuspended := false
	switch tr.to {
	case models.CreatorApproved:
		// approvedAt set on approve and both reinstatement edges; the
		// closed suspension is cleared
		approvedAt = &now
		clearSuspended = true
	case models.CreatorSuspended:
		suspendedAt = &now
	}
	// deactivation keeps suspendedAt as history

	ok, err := s.store.CompareAndSwapCreatorStatus(ctx, creatorID, tr.from, tr.to, approvedAt, suspendedAt, clearSuspended)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !ok {
		fresh, gerr := s.Get(ctx, creatorID)
		if gerr != nil {
			return nil, gerr
		}
		return nil, domain.NewInvalidTransitionError(string(fresh.Status), string(tr.to))
	}

	if tr.cascade != nil {
		n, err := s.links.SetActive(ctx, creatorID, *tr.cascade)
		if err != nil {
			return nil, err
		}
		s.log.Info("creator links cascaded",
			"creator_id", creatorID, "active", *tr.cascade, "links", n)
	}

	entry := fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), action)
	if note != "" {
		entry += ": " + note
	}
	if err := s.store.AppendCreatorNote(ctx, creatorID, entry); err != nil {
		s.log.Warn("failed to append audit note", "creator_id", creatorID, "error", err)
	}

	return s.Get(ctx, creatorID)
}

func transitionTarget(action Action) string {
	if edges := transitionTable[action]; len(edges) > 0 {
		return string(edges[0].to)
	}
	return string(action)
}

// SetCommissionRate validates and applies a new commission rate.
// The rate applies only to future transactions.
func (s *Service) SetCommissionRate(ctx context.Context, creatorID string, rateValue decimal.Decimal) error {
	if rateValue.IsNegative() || rateValue.GreaterThan(maxRate) {
		return domain.NewInvalidCommissionRateError(rateValue.String())
	}
	err := s.store.UpdateCreatorRate(ctx, creatorID, rateValue)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFoundError("creator")
	}
	if err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

// SetMinimumPayout validates and applies a new minimum payout threshold
func (s *Service) SetMinimumPayout(ctx context.Context, creatorID string, minimum decimal.Decimal) error {
	if minimum.LessThan(minMinimumPayout) {
		return domain.NewInvalidMinimumPayoutError(minimum.String())
	}
	err := s.store.UpdateCreatorMinimumPayout(ctx, creatorID, minimum)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFoundError("creator")
	}
	if err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

// Bulk applies one action to a set of creators. Per-creator the normal
// transition rules still apply; creators whose current state makes the
// action invalid are skipped, not failed. One ineligible member never
// fails the batch, and no lock spans the batch — each creator is
// processed independently, which is what keeps interleaving with
// non-batch updates safe.
func (s *Service) Bulk(ctx context.Context, req models.BulkRequest) (*models.BulkResult, error) {
	result := &models.BulkResult{Action: req.Action}

	// Validate update payloads up front, before any write.
	switch req.Action {
	case models.BulkActionUpdateRate:
		if req.Updates.CommissionRate == nil {
			return nil, domain.NewValidationError("updates.commission_rate is required")
		}
		if req.Updates.CommissionRate.IsNegative() || req.Updates.CommissionRate.GreaterThan(maxRate) {
			return nil, domain.NewInvalidCommissionRateError(req.Updates.CommissionRate.String())
		}
	case models.BulkActionUpdateMinimumPayout:
		if req.Updates.MinimumPayout == nil {
			return nil, domain.NewValidationError("updates.minimum_payout is required")
		}
		if req.Updates.MinimumPayout.LessThan(minMinimumPayout) {
			return nil, domain.NewInvalidMinimumPayoutError(req.Updates.MinimumPayout.String())
		}
	}

	for _, id := range req.CreatorIDs {
		var err error
		switch req.Action {
		case models.BulkActionApprove:
			_, err = s.Transition(ctx, id, ActionApprove, req.Updates.Note)
		case models.BulkActionSuspend:
			_, err = s.Transition(ctx, id, ActionSuspend, req.Updates.Note)
		case models.BulkActionReactivate:
			_, err = s.Transition(ctx, id, ActionReactivate, req.Updates.Note)
		case models.BulkActionUpdateRate:
			err = s.SetCommissionRate(ctx, id, *req.Updates.CommissionRate)
		case models.BulkActionUpdateMinimumPayout:
			err = s.SetMinimumPayout(ctx, id, *req.Updates.MinimumPayout)
		default:
			return nil, domain.NewValidationError("unknown bulk action " + req.Action)
		}

		switch {
		case err == nil:
			result.Modified++
		case domain.IsInvalidTransition(err) || domain.IsNotFound(err):
			result.Skipped = append(result.Skipped, id)
		default:
			return nil, err
		}
	}

	s.log.Info("bulk operation finished",
		"action", req.Action,
		"requested", len(req.CreatorIDs),
		"modified", result.Modified,
		"skipped", len(result.Skipped))
	return result, nil
}

// ListFilter narrows List
type ListFilter struct {
	Status models.CreatorStatus
	Tier   models.Tier
	Search string
	Page   int
	Limit  int
}

// listChunk is the page size used when walking the full creator set for
// in-memory tier/search filtering. Variable so tests can exercise the
// chunk boundary.
var listChunk = 1000

// List returns a page of creators with their current tier. Tier and
// search filters apply in memory, since tier is computed from the ledger
// rather than stored; when either is requested the status-filtered rows
// are walked in chunks so no creator is dropped.
func (s *Service) List(ctx context.Context, f ListFilter) (*models.CreatorListResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}

	postFilter := f.Tier != "" || f.Search != ""

	var (
		rows  []models.Creator
		total int
	)
	if postFilter {
		for offset := 0; ; offset += listChunk {
			batch, _, err := s.store.ListCreators(ctx, store.CreatorFilter{
				Status: f.Status, Limit: listChunk, Offset: offset,
			})
			if err != nil {
				return nil, domain.NewInternalError(err)
			}
			rows = append(rows, batch...)
			if len(batch) < listChunk {
				break
			}
		}
	} else {
		var err error
		rows, total, err = s.store.ListCreators(ctx, store.CreatorFilter{
			Status: f.Status, Limit: f.Limit, Offset: (f.Page - 1) * f.Limit,
		})
		if err != nil {
			return nil, domain.NewInternalError(err)
		}
	}

	revenue, err := s.store.TrailingRevenueByCreators(ctx, time.Now().UTC().Add(-trailingWindow))
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	needle := foldSearch(f.Search)
	items := make([]models.CreatorListItem, 0, len(rows))
	for _, c := range rows {
		tier := commission.ClassifyTier(revenue[c.ID])
		if f.Tier != "" && tier != f.Tier {
			continue
		}
		if needle != "" &&
			!strings.Contains(foldSearch(c.DisplayName), needle) &&
			!strings.Contains(foldSearch(c.Email), needle) {
			continue
		}
		items = append(items, models.CreatorListItem{Creator: c, Tier: tier})
	}

	if postFilter {
		total = len(items)
		start := (f.Page - 1) * f.Limit
		if start > len(items) {
			start = len(items)
		}
		end := start + f.Limit
		if end > len(items) {
			end = len(items)
		}
		items = items[start:end]
	}

	return &models.CreatorListResponse{
		Creators: items,
		Pagination: models.Pagination{
			Page:  f.Page,
			Limit: f.Limit,
			Total: total,
			Pages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

// Stats aggregates a single creator's performance view
func (s *Service) Stats(ctx context.Context, creatorID string) (*models.CreatorStats, error) {
	creator, err := s.Get(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	earnings, err := s.store.SumEarningsByStatus(ctx, creatorID)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	trailing, err := s.store.TrailingRevenueByCreator(ctx, creatorID, time.Now().UTC().Add(-trailingWindow))
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	conversionRate := 0.0
	if creator.TotalClicks > 0 {
		conversionRate = float64(creator.TotalSales) / float64(creator.TotalClicks) * 100
	}

	return &models.CreatorStats{
		CreatorID:        creator.ID,
		Status:           creator.Status,
		Tier:             commission.ClassifyTier(trailing),
		TotalClicks:      creator.TotalClicks,
		TotalSales:       creator.TotalSales,
		ConversionRate:   conversionRate,
		PendingEarnings:  earnings[models.TransactionPending],
		ApprovedEarnings: earnings[models.TransactionApproved],
		PaidEarnings:     earnings[models.TransactionPaid],
		TrailingRevenue:  trailing,
	}, nil
}
