package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

type stubAttention struct {
	items []dtos.SyncAttentionItem
	err   error
	calls atomic.Int32
}

func (s *stubAttention) NeedingAttention(ctx context.Context) ([]dtos.SyncAttentionItem, error) {
	s.calls.Add(1)
	return s.items, s.err
}

type stubCleaner struct {
	gotDays int
	logs    int64
	details int64
	err     error
}

func (s *stubCleaner) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, int64, error) {
	s.gotDays = retentionDays
	return s.logs, s.details, s.err
}

func TestSyncHealthJob_RunPublishesSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsRegistry(reg)

	source := &stubAttention{items: []dtos.SyncAttentionItem{
		{ConnectionID: "c1", Health: constants.SyncHealthCritical, ConsecutiveFailures: 6},
		{ConnectionID: "c2", Health: constants.SyncHealthWarning, ConsecutiveFailures: 3},
		{ConnectionID: "c3", Health: constants.SyncHealthCritical, IsFullSyncRequired: true},
	}}

	items, err := NewSyncHealthJob(source, m).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConnectionsNeedingAttention))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsByHealth.WithLabelValues(string(constants.SyncHealthCritical))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsByHealth.WithLabelValues(string(constants.SyncHealthWarning))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConnectionsByHealth.WithLabelValues(string(constants.SyncHealthHealthy))))
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDuration))
}

func TestSyncHealthJob_RunReturnsSourceError(t *testing.T) {
	boom := errors.New("db down")
	items, err := NewSyncHealthJob(&stubAttention{err: boom}, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, items)
}

func TestSyncHealthJob_RunScheduledStopsOnCancel(t *testing.T) {
	source := &stubAttention{}
	job := NewSyncHealthJob(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunScheduled(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return source.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunScheduled did not return after cancel")
	}
}

func TestImportCleanupJob_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsRegistry(reg)
	cleaner := &stubCleaner{logs: 4, details: 120}

	require.NoError(t, NewImportCleanupJob(cleaner, 45, m).Run(context.Background()))
	assert.Equal(t, 45, cleaner.gotDays)
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDuration))

	cleaner.err = errors.New("locked")
	assert.Error(t, NewImportCleanupJob(cleaner, 45, nil).Run(context.Background()))
}

func TestInitializeJobs(t *testing.T) {
	cfg := Config{
		SweepInterval:         time.Hour,
		ImportRetentionDays:   90,
		ImportCleanupSchedule: "0 3 * * *",
	}

	s, err := InitializeJobs(context.Background(), cfg, &stubAttention{}, &stubCleaner{}, nil)
	require.NoError(t, err)
	require.NotNil(t, s.SyncHealth)
	require.NotNil(t, s.ImportCleanup)
	s.Stop()

	cfg.ImportCleanupSchedule = "every tuesday"
	_, err = InitializeJobs(context.Background(), cfg, &stubAttention{}, &stubCleaner{}, nil)
	assert.ErrorContains(t, err, "invalid import cleanup schedule")

	cfg.ImportCleanupSchedule = "0 3 * * *"
	cfg.SweepInterval = 0
	_, err = InitializeJobs(context.Background(), cfg, &stubAttention{}, &stubCleaner{}, nil)
	assert.Error(t, err)
}
