package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/store"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron       *cron.Cron
	reconciler *Reconciler
	log        logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(st *store.Store, log logger.Logger) *CronManager {
	return &CronManager{
		cron:       cron.New(),
		reconciler: NewReconciler(st, log),
		log:        log,
	}
}

// SetupJobs registers the scheduled jobs. schedule is a standard cron
// expression, hourly by default.
func (cm *CronManager) SetupJobs(schedule string) error {
	_, err := cm.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		cm.log.Info("running counter reconciliation job")
		if err := cm.reconciler.Run(ctx); err != nil {
			cm.log.Error("counter reconciliation job failed", "error", err)
		}
	})
	return err
}

// Start begins running scheduled jobs
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop halts the scheduler and waits for running jobs
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
}
