// Package tracking records referral clicks and issues the identifiers the
// HTTP layer propagates forward as cookies.
package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/links"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
)

// ClickInput carries the inbound request data for a link visit
type ClickInput struct {
	Code      string
	SessionID string // empty for a first-time visitor; a new one is issued
	IPAddress string
	UserAgent string
	Referrer  string
}

// ClickResult is the recorded click plus the identifiers the caller must
// set as cookies: the long-lived per-visitor session id and the
// short-lived link id.
type ClickResult struct {
	Click     *models.ReferralClick
	SessionID string
	LinkID    string
	ProductID string
}

// Service is the click tracker
type Service struct {
	store *store.Store
	links *links.Service
	log   logger.Logger
}

// NewService creates a new click tracker
func NewService(st *store.Store, linkRegistry *links.Service, log logger.Logger) *Service {
	return &Service{store: st, links: linkRegistry, log: log}
}

// Track records a click for an inbound link visit. Clicks are never
// merged or deduplicated at write time; deduplication belongs to the
// attribution step, because over-counting raw clicks is acceptable but
// over-crediting commissions is not.
//
// A click on a deactivated link is still recorded for analytics, but the
// returned error is LINK_NOT_FOUND so the HTTP surface 404s and sets no
// cookies; such a click can never attribute.
func (s *Service) Track(ctx context.Context, in ClickInput) (*ClickResult, error) {
	link, err := s.links.ResolveAnyState(ctx, in.Code)
	if err != nil {
		return nil, err
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	click := &models.ReferralClick{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		CreatorID: link.CreatorID,
		SessionID: sessionID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
		ClickedAt: time.Now().UTC(),
	}
	if err := s.store.InsertClick(ctx, click); err != nil {
		return nil, domain.NewInternalError(err)
	}

	// Write-through counters; the reconciliation job recomputes them from
	// the click log, so a failed increment is logged and tolerated.
	if err := s.store.IncLinkClickCount(ctx, link.ID); err != nil {
		s.log.Warn("click counter increment failed", "link_id", link.ID, "error", err)
	}
	if err := s.store.IncCreatorClicks(ctx, link.CreatorID); err != nil {
		s.log.Warn("creator click counter increment failed", "creator_id", link.CreatorID, "error", err)
	}

	if !link.IsActive {
		s.log.Debug("click recorded on inactive link", "link_id", link.ID, "code", in.Code)
		return nil, domain.NewLinkNotFoundError(in.Code)
	}

	return &ClickResult{
		Click:     click,
		SessionID: sessionID,
		LinkID:    link.ID,
		ProductID: link.ProductID,
	}, nil
}
