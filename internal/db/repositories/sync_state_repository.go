package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// SyncStateRepo handles sync_states with GORM
type SyncStateRepo struct {
	db *gorm.DB
}

func NewSyncStateRepo(db *gorm.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

// Transaction runs fn with a repo bound to a single database transaction
func (r *SyncStateRepo) Transaction(ctx context.Context, fn func(repo *SyncStateRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SyncStateRepo{db: tx})
	})
}

func (r *SyncStateRepo) Create(ctx context.Context, state *gormModels.SyncState) error {
	if err := r.db.WithContext(ctx).Create(state).Error; err != nil {
		return fmt.Errorf("failed to create sync state: %w", err)
	}
	return nil
}

// GetByConnectionID returns nil, nil when the connection has no state yet
func (r *SyncStateRepo) GetByConnectionID(ctx context.Context, connectionID string) (*gormModels.SyncState, error) {
	var state gormModels.SyncState

	err := r.db.WithContext(ctx).
		Preload("Connection").
		Where("connection_id = ?", connectionID).
		First(&state).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch sync state: %w", err)
	}

	return &state, nil
}

// Save writes every column of the state. The preloaded connection is not touched.
func (r *SyncStateRepo) Save(ctx context.Context, state *gormModels.SyncState) error {
	if err := r.db.WithContext(ctx).Omit("Connection").Save(state).Error; err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}

// DeleteByConnectionID removes the state row and reports whether it existed
func (r *SyncStateRepo) DeleteByConnectionID(ctx context.Context, connectionID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Delete(&gormModels.SyncState{})

	if result.Error != nil {
		return false, fmt.Errorf("failed to delete sync state: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListNeedingAttention returns states flagged for full sync, at or past
// minFailures, or without a successful sync since staleBefore
func (r *SyncStateRepo) ListNeedingAttention(ctx context.Context, minFailures int, staleBefore time.Time) ([]gormModels.SyncState, error) {
	var states []gormModels.SyncState

	err := r.db.WithContext(ctx).
		Preload("Connection").
		Where("is_full_sync_required = ?", true).
		Or("consecutive_failures >= ?", minFailures).
		Or("last_successful_sync IS NULL").
		Or("last_successful_sync < ?", staleBefore).
		Order("consecutive_failures DESC").
		Order("connection_id ASC").
		Find(&states).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list sync states needing attention: %w", err)
	}
	return states, nil
}
