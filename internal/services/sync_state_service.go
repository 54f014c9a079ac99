package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// Metadata keys written by the tracker
const (
	metaLastError           = "last_error"
	metaLastErrorAt         = "last_error_at"
	metaFailureHistory      = "failure_history"
	metaFullSyncReason      = "full_sync_reason"
	metaFullSyncRequestedAt = "full_sync_requested_at"
	metaLastSuccessStats    = "last_success_stats"
	metaResetReason         = "reset_reason"
	metaResetAt             = "reset_at"

	fullSyncReasonThreshold = "consecutive_failures_threshold"
	defaultResetReason      = "manual_reset"
)

// SyncStateService tracks incremental sync progress, one state per connection.
// It only records the outcomes it is told about; callers run at most one sync
// per connection at a time.
type SyncStateService struct {
	repo        *repositories.SyncStateRepo
	connections *repositories.ERPConnectionRepo
	metrics     *metrics.MetricsRegistry
	maxFailures int

	// Now is the clock used for every timestamp the service writes
	Now func() time.Time
}

func NewSyncStateService(repo *repositories.SyncStateRepo, connections *repositories.ERPConnectionRepo, metricsReg *metrics.MetricsRegistry, maxFailures int) *SyncStateService {
	if maxFailures <= 0 {
		maxFailures = constants.DefaultMaxFailures
	}
	return &SyncStateService{
		repo:        repo,
		connections: connections,
		metrics:     metricsReg,
		maxFailures: maxFailures,
		Now:         time.Now,
	}
}

func (s *SyncStateService) now() time.Time {
	return s.Now().UTC()
}

// Init creates the state row for a connection. A second call fails with ErrSyncStateExists.
func (s *SyncStateService) Init(ctx context.Context, connectionID string, strategy constants.SyncStrategy, metadata map[string]interface{}) (*gormModels.SyncState, error) {
	if strings.TrimSpace(connectionID) == "" {
		return nil, validationError("connection_id", "is required")
	}
	if strategy == "" {
		strategy = constants.SyncStrategyTimestamp
	}
	if !strategy.Valid() {
		return nil, validationError("sync_strategy",
			fmt.Sprintf("unsupported value %q (allowed: timestamp, cursor, incremental_id)", strategy))
	}

	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, storageError("failed to load connection", err)
	}
	if conn == nil {
		return nil, notFound("connection", connectionID)
	}

	state := &gormModels.SyncState{
		ConnectionID: connectionID,
		SyncStrategy: strategy,
		Metadata:     models.JSONB{},
	}
	state.Metadata.Merge(metadata)

	err = s.repo.Transaction(ctx, func(repo *repositories.SyncStateRepo) error {
		existing, err := repo.GetByConnectionID(ctx, connectionID)
		if err != nil {
			return storageError("failed to check sync state", err)
		}
		if existing != nil {
			return syncStateExists(connectionID)
		}
		if err := repo.Create(ctx, state); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return syncStateExists(connectionID)
			}
			return storageError("failed to create sync state", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to create sync state", err)
	}

	state.Connection = conn
	logging.WithConnection(connectionID).Infow("Sync state initialised", "sync_strategy", strategy)
	return state, nil
}

func (s *SyncStateService) Get(ctx context.Context, connectionID string) (*gormModels.SyncState, error) {
	state, err := s.repo.GetByConnectionID(ctx, connectionID)
	if err != nil {
		return nil, storageError("failed to load sync state", err)
	}
	if state == nil {
		return nil, notFound("sync state for connection", connectionID)
	}
	return state, nil
}

// RecordSuccess is the only path that zeroes the failure counter and clears the full-sync flag
func (s *SyncStateService) RecordSuccess(ctx context.Context, connectionID string, result dtos.SyncResult) (*gormModels.SyncState, error) {
	now := s.now()

	state, err := s.mutate(ctx, connectionID, func(state *gormModels.SyncState) error {
		meta := state.Metadata.Clone()
		meta.Merge(result.Metadata)
		delete(meta, metaLastError)
		delete(meta, metaLastErrorAt)
		delete(meta, metaFullSyncReason)
		delete(meta, metaFullSyncRequestedAt)
		meta[metaLastSuccessStats] = map[string]interface{}{
			"records_processed": result.RecordsProcessed,
			"records_created":   result.RecordsCreated,
			"records_updated":   result.RecordsUpdated,
			"records_failed":    result.RecordsFailed,
			"completed_at":      now.Format(time.RFC3339),
		}

		state.LastSyncAt = &now
		state.LastSuccessfulSync = &now
		state.ConsecutiveFailures = 0
		state.IsFullSyncRequired = false
		if result.SyncCursor != nil {
			state.SyncCursor = result.SyncCursor
		}
		if result.LastExternalTimestamp != nil {
			ts := result.LastExternalTimestamp.UTC()
			state.LastExternalTimestamp = &ts
		}
		state.Metadata = meta
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SyncOutcome("success")
	logging.WithConnection(connectionID).Infow("Sync succeeded",
		"records_processed", result.RecordsProcessed,
		"records_failed", result.RecordsFailed,
	)
	return state, nil
}

// RecordFailure counts a failed attempt. Once the counter reaches maxFailures
// (the service default when maxFailures <= 0) a full resync becomes mandatory.
func (s *SyncStateService) RecordFailure(ctx context.Context, connectionID, message string, maxFailures int) (*gormModels.SyncState, error) {
	if maxFailures <= 0 {
		maxFailures = s.maxFailures
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unspecified sync failure"
	}
	now := s.now()
	tripped := false

	state, err := s.mutate(ctx, connectionID, func(state *gormModels.SyncState) error {
		state.ConsecutiveFailures++
		state.LastSyncAt = &now

		meta := state.Metadata.Clone()
		meta[metaLastError] = message
		meta[metaLastErrorAt] = now.Format(time.RFC3339)
		meta[metaFailureHistory] = appendFailure(meta[metaFailureHistory], map[string]interface{}{
			"message":        message,
			"at":             now.Format(time.RFC3339),
			"failure_number": state.ConsecutiveFailures,
		})

		if state.ConsecutiveFailures >= maxFailures && !state.IsFullSyncRequired {
			state.IsFullSyncRequired = true
			meta[metaFullSyncReason] = fullSyncReasonThreshold
			meta[metaFullSyncRequestedAt] = now.Format(time.RFC3339)
			tripped = true
		}
		state.Metadata = meta
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SyncOutcome("failure")
	log := logging.WithConnection(connectionID)
	log.Warnw("Sync failed",
		"consecutive_failures", state.ConsecutiveFailures,
		"error", message,
	)
	if tripped {
		s.metrics.FullSyncRequired(fullSyncReasonThreshold)
		log.Errorw("Failure threshold reached, full resync required",
			"consecutive_failures", state.ConsecutiveFailures,
			"max_failures", maxFailures,
		)
	}
	return state, nil
}

// ForceFullSync sets the full-sync flag without touching progress fields
func (s *SyncStateService) ForceFullSync(ctx context.Context, connectionID, reason string) (*gormModels.SyncState, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("reason", "is required")
	}
	now := s.now()

	state, err := s.mutate(ctx, connectionID, func(state *gormModels.SyncState) error {
		state.IsFullSyncRequired = true
		meta := state.Metadata.Clone()
		meta[metaFullSyncReason] = reason
		meta[metaFullSyncRequestedAt] = now.Format(time.RFC3339)
		state.Metadata = meta
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FullSyncRequired("manual")
	logging.WithConnection(connectionID).Infow("Full resync forced", "reason", reason)
	return state, nil
}

// Reset clears the cursor and every timestamp and forces a full sync. The
// failure counter is left alone; only a successful sync zeroes it.
func (s *SyncStateService) Reset(ctx context.Context, connectionID, reason string) (*gormModels.SyncState, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultResetReason
	}
	now := s.now()

	state, err := s.mutate(ctx, connectionID, func(state *gormModels.SyncState) error {
		state.SyncCursor = nil
		state.LastSyncAt = nil
		state.LastSuccessfulSync = nil
		state.LastExternalTimestamp = nil
		state.IsFullSyncRequired = true

		meta := state.Metadata.Clone()
		meta[metaResetReason] = reason
		meta[metaResetAt] = now.Format(time.RFC3339)
		meta[metaFullSyncReason] = reason
		meta[metaFullSyncRequestedAt] = now.Format(time.RFC3339)
		state.Metadata = meta
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FullSyncRequired("reset")
	logging.WithConnection(connectionID).Infow("Sync state reset", "reason", reason)
	return state, nil
}

// HealthOf loads the state for a connection and labels it
func (s *SyncStateService) HealthOf(ctx context.Context, connectionID string) (constants.SyncHealth, error) {
	state, err := s.Get(ctx, connectionID)
	if err != nil {
		return "", err
	}
	return SyncHealthOf(state, s.now()), nil
}

// NeedingAttention is the monitoring sweep over every connection
func (s *SyncStateService) NeedingAttention(ctx context.Context) ([]dtos.SyncAttentionItem, error) {
	now := s.now()
	staleBefore := now.Add(-constants.HealthWarningHours * time.Hour)

	states, err := s.repo.ListNeedingAttention(ctx, constants.HealthWarningFailures, staleBefore)
	if err != nil {
		return nil, storageError("failed to list sync states needing attention", err)
	}

	items := make([]dtos.SyncAttentionItem, 0, len(states))
	for i := range states {
		items = append(items, attentionItem(&states[i], now))
	}
	return items, nil
}

// Delete removes the state of a connection so the connection itself can be deleted
func (s *SyncStateService) Delete(ctx context.Context, connectionID string) error {
	deleted, err := s.repo.DeleteByConnectionID(ctx, connectionID)
	if err != nil {
		return storageError("failed to delete sync state", err)
	}
	if !deleted {
		return notFound("sync state for connection", connectionID)
	}
	logging.WithConnection(connectionID).Infow("Sync state deleted")
	return nil
}

func (s *SyncStateService) ToResponse(state *gormModels.SyncState) dtos.SyncStateResponse {
	return dtos.SyncStateResponse{
		ID:                    state.ID,
		ConnectionID:          state.ConnectionID,
		SyncStrategy:          state.SyncStrategy,
		LastSyncAt:            state.LastSyncAt,
		LastSuccessfulSync:    state.LastSuccessfulSync,
		LastExternalTimestamp: state.LastExternalTimestamp,
		SyncCursor:            state.SyncCursor,
		ConsecutiveFailures:   state.ConsecutiveFailures,
		IsFullSyncRequired:    state.IsFullSyncRequired,
		Metadata:              state.Metadata.Clone(),
		Health:                SyncHealthOf(state, s.now()),
		UpdatedAt:             state.UpdatedAt,
	}
}

// mutate loads, changes and saves one state inside a transaction
func (s *SyncStateService) mutate(ctx context.Context, connectionID string, change func(state *gormModels.SyncState) error) (*gormModels.SyncState, error) {
	var out *gormModels.SyncState

	err := s.repo.Transaction(ctx, func(repo *repositories.SyncStateRepo) error {
		state, err := repo.GetByConnectionID(ctx, connectionID)
		if err != nil {
			return storageError("failed to load sync state", err)
		}
		if state == nil {
			return notFound("sync state for connection", connectionID)
		}
		if err := change(state); err != nil {
			return err
		}
		if err := repo.Save(ctx, state); err != nil {
			return storageError("failed to save sync state", err)
		}
		out = state
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to update sync state", err)
	}
	return out, nil
}

// SyncHealthOf labels a state. Critical checks run first so ties go to the more severe label.
func SyncHealthOf(state *gormModels.SyncState, now time.Time) constants.SyncHealth {
	if state == nil || state.LastSuccessfulSync == nil {
		return constants.SyncHealthUnknown
	}

	hours := now.Sub(*state.LastSuccessfulSync).Hours()
	switch {
	case state.ConsecutiveFailures >= constants.HealthCriticalFailures || hours > constants.HealthCriticalHours:
		return constants.SyncHealthCritical
	case state.ConsecutiveFailures >= constants.HealthWarningFailures || hours > constants.HealthWarningHours:
		return constants.SyncHealthWarning
	default:
		return constants.SyncHealthHealthy
	}
}

func attentionItem(state *gormModels.SyncState, now time.Time) dtos.SyncAttentionItem {
	item := dtos.SyncAttentionItem{
		ConnectionID:        state.ConnectionID,
		Health:              SyncHealthOf(state, now),
		ConsecutiveFailures: state.ConsecutiveFailures,
		IsFullSyncRequired:  state.IsFullSyncRequired,
		LastSuccessfulSync:  state.LastSuccessfulSync,
		Reasons:             []string{},
	}
	if state.Connection != nil {
		item.ConnectionName = state.Connection.Name
		item.SystemType = state.Connection.SystemType
	}

	if state.IsFullSyncRequired {
		item.Reasons = append(item.Reasons, "full sync required")
	}
	if state.ConsecutiveFailures >= constants.HealthWarningFailures {
		item.Reasons = append(item.Reasons, fmt.Sprintf("%d consecutive failures", state.ConsecutiveFailures))
	}
	if state.LastSuccessfulSync == nil {
		item.Reasons = append(item.Reasons, "never synced successfully")
	} else {
		hours := now.Sub(*state.LastSuccessfulSync).Hours()
		item.HoursSinceSuccess = &hours
		if hours > constants.HealthWarningHours {
			item.Reasons = append(item.Reasons, fmt.Sprintf("no successful sync for %.0f hours", hours))
		}
	}
	return item
}

// appendFailure adds entry to the stored failure history, keeping the newest entries
func appendFailure(existing interface{}, entry map[string]interface{}) []interface{} {
	var history []interface{}
	if list, ok := existing.([]interface{}); ok {
		history = append(history, list...)
	}
	history = append(history, entry)
	if len(history) > constants.FailureHistoryLimit {
		history = history[len(history)-constants.FailureHistoryLimit:]
	}
	return history
}

func syncStateExists(connectionID string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeSyncStateExists,
		Message: fmt.Sprintf("sync state already exists for connection %s", connectionID),
	}
}
