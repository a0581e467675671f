// Package attribution binds conversion reports to recorded clicks.
package attribution

import (
	"context"
	"errors"
	"time"

	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/store"
)

// Attribution identifies who gets credit for a conversion
type Attribution struct {
	CreatorID string
	LinkID    string
	ClickID   string
	ClickedAt time.Time
}

// Resolver implements window-bounded last-click attribution
type Resolver struct {
	store  *store.Store
	window time.Duration
}

// NewResolver creates a resolver with the given attribution window
func NewResolver(st *store.Store, window time.Duration) *Resolver {
	return &Resolver{store: st, window: window}
}

// Window returns the configured attribution window
func (r *Resolver) Window() time.Duration {
	return r.window
}

// Resolve finds the most recent click for the session whose link is
// currently active and whose age at `at` is within the attribution
// window. When multiple clicks qualify, the most recent wins; first-click
// and multi-touch models are deliberately not offered.
//
// A nil, nil return means the conversion is unattributed. That is a valid
// terminal outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, at time.Time) (*Attribution, error) {
	if sessionID == "" {
		return nil, nil
	}

	cutoff := at.Add(-r.window)
	click, err := r.store.LatestAttributableClick(ctx, sessionID, cutoff)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	return &Attribution{
		CreatorID: click.CreatorID,
		LinkID:    click.LinkID,
		ClickID:   click.ID,
		ClickedAt: click.ClickedAt,
	}, nil
}
