package jobs

import (
	"context"
	"time"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

const syncHealthJobName = "sync_health_sweep"

// AttentionSource lists the sync states an operator should look at
type AttentionSource interface {
	NeedingAttention(ctx context.Context) ([]dtos.SyncAttentionItem, error)
}

// SyncHealthJob periodically sweeps sync states and reports the ones that are
// failing or stale
type SyncHealthJob struct {
	source  AttentionSource
	metrics *metrics.MetricsRegistry
}

// NewSyncHealthJob creates a new sync health sweep job
func NewSyncHealthJob(source AttentionSource, metricsReg *metrics.MetricsRegistry) *SyncHealthJob {
	return &SyncHealthJob{source: source, metrics: metricsReg}
}

// Run performs one sweep and returns the items found
func (j *SyncHealthJob) Run(ctx context.Context) ([]dtos.SyncAttentionItem, error) {
	start := time.Now()
	defer func() {
		j.metrics.ObserveJob(syncHealthJobName, time.Since(start).Seconds())
	}()

	items, err := j.source.NeedingAttention(ctx)
	if err != nil {
		logging.Error("Sync health sweep failed", "error", err.Error())
		return nil, err
	}

	byHealth := make(map[constants.SyncHealth]int)
	for _, item := range items {
		byHealth[item.Health]++
		logging.WithConnection(item.ConnectionID).Warnw("Sync needs attention",
			"connection_name", item.ConnectionName,
			"health", item.Health,
			"consecutive_failures", item.ConsecutiveFailures,
			"full_sync_required", item.IsFullSyncRequired,
		)
	}
	j.metrics.AttentionSweep(len(items), byHealth)

	logging.Info("Sync health sweep complete",
		"needing_attention", len(items),
		"duration", time.Since(start).String(),
	)
	return items, nil
}

// RunScheduled runs the sweep on a fixed interval until ctx is cancelled
func (j *SyncHealthJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info("Sync health sweep scheduled", "interval", interval.String())

	for {
		select {
		case <-ticker.C:
			// errors are logged inside Run; the next tick retries
			_, _ = j.Run(ctx)
		case <-ctx.Done():
			logging.Info("Sync health sweep shutting down")
			return
		}
	}
}
