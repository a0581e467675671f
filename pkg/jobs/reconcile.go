// Package jobs runs scheduled maintenance against the store.
package jobs

import (
	"context"

	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/store"
)

// Reconciler recomputes the denormalized counters from the authoritative
// event log. The write paths bump counters fire-and-forget; this sweep is
// what makes partial failures harmless.
type Reconciler struct {
	store *store.Store
	log   logger.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(st *store.Store, log logger.Logger) *Reconciler {
	return &Reconciler{store: st, log: log}
}

// Run recomputes link and creator counters. Each record is reconciled
// independently; one failure does not stop the sweep.
func (r *Reconciler) Run(ctx context.Context) error {
	linkIDs, err := r.store.AllLinkIDs(ctx)
	if err != nil {
		return err
	}
	fixedLinks := 0
	for _, id := range linkIDs {
		if err := r.reconcileLink(ctx, id); err != nil {
			r.log.Warn("link reconciliation failed", "link_id", id, "error", err)
			continue
		}
		fixedLinks++
	}

	creatorIDs, err := r.store.AllCreatorIDs(ctx)
	if err != nil {
		return err
	}
	fixedCreators := 0
	for _, id := range creatorIDs {
		if err := r.reconcileCreator(ctx, id); err != nil {
			r.log.Warn("creator reconciliation failed", "creator_id", id, "error", err)
			continue
		}
		fixedCreators++
	}

	r.log.Info("counter reconciliation finished",
		"links", fixedLinks, "creators", fixedCreators)
	return nil
}

func (r *Reconciler) reconcileLink(ctx context.Context, linkID string) error {
	clicks, err := r.store.CountClicksByLink(ctx, linkID)
	if err != nil {
		return err
	}
	conversions, err := r.store.CountConversionsByLink(ctx, linkID)
	if err != nil {
		return err
	}
	return r.store.SetLinkCounters(ctx, linkID, clicks, conversions)
}

func (r *Reconciler) reconcileCreator(ctx context.Context, creatorID string) error {
	clicks, err := r.store.CountClicksByCreator(ctx, creatorID)
	if err != nil {
		return err
	}
	sales, totalCommission, err := r.store.LedgerTotalsByCreator(ctx, creatorID)
	if err != nil {
		return err
	}

	conversionRate := 0.0
	if clicks > 0 {
		conversionRate = float64(sales) / float64(clicks) * 100
	}
	return r.store.SetCreatorAggregates(ctx, creatorID, clicks, sales, totalCommission, conversionRate)
}
