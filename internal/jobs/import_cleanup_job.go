package jobs

import (
	"context"
	"time"

	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
)

const importCleanupJobName = "import_log_cleanup"

// LogCleaner purges finished import batches past their retention window
type LogCleaner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (logsDeleted, detailsDeleted int64, err error)
}

// ImportCleanupJob deletes old import logs and their details
type ImportCleanupJob struct {
	cleaner       LogCleaner
	metrics       *metrics.MetricsRegistry
	retentionDays int
}

func NewImportCleanupJob(cleaner LogCleaner, retentionDays int, metricsReg *metrics.MetricsRegistry) *ImportCleanupJob {
	return &ImportCleanupJob{cleaner: cleaner, metrics: metricsReg, retentionDays: retentionDays}
}

// Run executes one cleanup pass
func (j *ImportCleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		j.metrics.ObserveJob(importCleanupJobName, time.Since(start).Seconds())
	}()

	logs, details, err := j.cleaner.CleanupOldLogs(ctx, j.retentionDays)
	if err != nil {
		logging.Error("Import log cleanup failed",
			"retention_days", j.retentionDays,
			"error", err.Error(),
		)
		return err
	}

	logging.Info("Import log cleanup complete",
		"retention_days", j.retentionDays,
		"logs_deleted", logs,
		"details_deleted", details,
		"duration", time.Since(start).String(),
	)
	return nil
}
