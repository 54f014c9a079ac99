package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
)

// Config controls the background job schedule
type Config struct {
	SweepInterval         time.Duration
	ImportRetentionDays   int
	ImportCleanupSchedule string
}

// Scheduler owns the running background jobs
type Scheduler struct {
	SyncHealth    *SyncHealthJob
	ImportCleanup *ImportCleanupJob

	cron   *cron.Cron
	cancel context.CancelFunc
}

// InitializeJobs initializes and starts all background jobs. The sync health
// sweep runs on a ticker; import cleanup runs on a cron schedule.
func InitializeJobs(
	ctx context.Context,
	cfg Config,
	attention AttentionSource,
	cleaner LogCleaner,
	metricsReg *metrics.MetricsRegistry,
) (*Scheduler, error) {
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", cfg.SweepInterval)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		SyncHealth:    NewSyncHealthJob(attention, metricsReg),
		ImportCleanup: NewImportCleanupJob(cleaner, cfg.ImportRetentionDays, metricsReg),
		cron:          cron.New(),
		cancel:        cancel,
	}

	_, err := s.cron.AddFunc(cfg.ImportCleanupSchedule, func() {
		_ = s.ImportCleanup.Run(ctx)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid import cleanup schedule %q: %w", cfg.ImportCleanupSchedule, err)
	}

	go s.SyncHealth.RunScheduled(ctx, cfg.SweepInterval)
	s.cron.Start()

	logging.Info("Background jobs started",
		"sweep_interval", cfg.SweepInterval.String(),
		"import_cleanup_schedule", cfg.ImportCleanupSchedule,
		"import_retention_days", cfg.ImportRetentionDays,
	)
	return s, nil
}

// Stop cancels the ticker loop and waits for any running cron job to finish
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logging.Info("Background jobs stopped")
}
