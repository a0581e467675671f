// Package links owns the mapping from a public link code to its creator.
package links

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
)

// Service is the referral link registry
type Service struct {
	store *store.Store
}

// NewService creates a new link registry
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Create issues a new link with a generated public code for a creator
func (s *Service) Create(ctx context.Context, creatorID, productID string) (*models.ReferralLink, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate link code: %w", err)
	}

	link := &models.ReferralLink{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		ProductID: productID,
		Code:      code,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Resolve maps a public code to its link. Unknown codes and deactivated
// links are indistinguishable to the caller: no credit may flow to a
// deactivated creator.
func (s *Service) Resolve(ctx context.Context, code string) (*models.ReferralLink, error) {
	link, err := s.store.GetLinkByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewLinkNotFoundError(code)
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !link.IsActive {
		return nil, domain.NewLinkNotFoundError(code)
	}
	return link, nil
}

// ResolveAnyState maps a code to its link regardless of activation, for
// analytics paths that record clicks on dead links
func (s *Service) ResolveAnyState(ctx context.Context, code string) (*models.ReferralLink, error) {
	link, err := s.store.GetLinkByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewLinkNotFoundError(code)
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return link, nil
}

// IsActive reports whether a link is currently active
func (s *Service) IsActive(ctx context.Context, linkID string) (bool, error) {
	link, err := s.store.GetLink(ctx, linkID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewInternalError(err)
	}
	return link.IsActive, nil
}

// SetActive cascades activation across every link the creator owns.
// Returns the number of links touched.
func (s *Service) SetActive(ctx context.Context, creatorID string, active bool) (int, error) {
	n, err := s.store.SetLinksActiveForCreator(ctx, creatorID, active)
	if err != nil {
		return 0, domain.NewInternalError(err)
	}
	return n, nil
}

// ListByCreator returns every link a creator owns
func (s *Service) ListByCreator(ctx context.Context, creatorID string) ([]models.ReferralLink, error) {
	return s.store.ListLinksByCreator(ctx, creatorID)
}

// generateCode generates a short unique public code
func generateCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
