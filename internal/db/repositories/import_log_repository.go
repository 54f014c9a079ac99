package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// ImportLogRepo handles import_logs headers and their import_details
type ImportLogRepo struct {
	db *gorm.DB
}

// CounterDelta is added to a running header's counters
type CounterDelta struct {
	Processed  int
	Successful int
	Failed     int
}

func NewImportLogRepo(db *gorm.DB) *ImportLogRepo {
	return &ImportLogRepo{db: db}
}

// Transaction runs fn with a repo bound to a single database transaction
func (r *ImportLogRepo) Transaction(ctx context.Context, fn func(repo *ImportLogRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ImportLogRepo{db: tx})
	})
}

func (r *ImportLogRepo) Create(ctx context.Context, log *gormModels.ImportLog) error {
	if err := r.db.WithContext(ctx).Omit("Connection", "Details").Create(log).Error; err != nil {
		return fmt.Errorf("failed to create import log: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the batch does not exist
func (r *ImportLogRepo) GetByID(ctx context.Context, id string) (*gormModels.ImportLog, error) {
	var log gormModels.ImportLog

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&log).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch import log: %w", err)
	}

	return &log, nil
}

// Save writes every column of an existing header
func (r *ImportLogRepo) Save(ctx context.Context, log *gormModels.ImportLog) error {
	if err := r.db.WithContext(ctx).Omit("Connection", "Details").Save(log).Error; err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// FinishRunning moves a running header to a terminal status. It reports false
// when the header was no longer running, so a batch only ever finishes once.
func (r *ImportLogRepo) FinishRunning(ctx context.Context, id string, status constants.ImportStatus, completedAt time.Time, errorSummary *string) (bool, error) {
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": completedAt,
		"updated_at":   completedAt,
	}
	if errorSummary != nil {
		updates["error_summary"] = *errorSummary
	}

	result := r.db.WithContext(ctx).
		Model(&gormModels.ImportLog{}).
		Where("id = ? AND status = ?", id, constants.ImportStatusRunning).
		Updates(updates)

	if result.Error != nil {
		return false, fmt.Errorf("failed to complete import log: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AddToCounters increments the counters of a running header in one statement
// and grows total_records when processed passes it. It reports false when the
// header was not running.
func (r *ImportLogRepo) AddToCounters(ctx context.Context, id string, delta CounterDelta, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&gormModels.ImportLog{}).
		Where("id = ? AND status = ?", id, constants.ImportStatusRunning).
		Updates(map[string]interface{}{
			"processed_records":  gorm.Expr("processed_records + ?", delta.Processed),
			"successful_records": gorm.Expr("successful_records + ?", delta.Successful),
			"failed_records":     gorm.Expr("failed_records + ?", delta.Failed),
			"total_records": gorm.Expr(
				"CASE WHEN total_records < processed_records + ? THEN processed_records + ? ELSE total_records END",
				delta.Processed, delta.Processed,
			),
			"updated_at": now,
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to update import counters: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateMetadata replaces the metadata document without touching the counters
func (r *ImportLogRepo) UpdateMetadata(ctx context.Context, id string, metadata models.JSONB, now time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&gormModels.ImportLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"metadata": metadata, "updated_at": now}).Error

	if err != nil {
		return fmt.Errorf("failed to update import metadata: %w", err)
	}
	return nil
}

func (r *ImportLogRepo) CreateDetails(ctx context.Context, details []gormModels.ImportDetail) error {
	if len(details) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&details).Error; err != nil {
		return fmt.Errorf("failed to create import details: %w", err)
	}
	return nil
}

// ListDetails returns the detail rows of one batch in insertion order
func (r *ImportLogRepo) ListDetails(ctx context.Context, importLogID string, filter dtos.DetailFilter) ([]gormModels.ImportDetail, error) {
	var details []gormModels.ImportDetail

	q := r.db.WithContext(ctx).Where("import_log_id = ?", importLogID)
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Order("created_at ASC").Order("id ASC").Find(&details).Error; err != nil {
		return nil, fmt.Errorf("failed to list import details: %w", err)
	}
	return details, nil
}

// List returns headers matching the filter, newest first
func (r *ImportLogRepo) List(ctx context.Context, filter dtos.ImportLogFilter) ([]gormModels.ImportLog, error) {
	var logs []gormModels.ImportLog

	q := r.db.WithContext(ctx).Model(&gormModels.ImportLog{})
	if filter.ConnectionID != "" {
		q = q.Where("connection_id = ?", filter.ConnectionID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ImportType != "" {
		q = q.Where("import_type = ?", filter.ImportType)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Order("started_at DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	return logs, nil
}

// ListRunning returns every running batch with its connection, oldest first
func (r *ImportLogRepo) ListRunning(ctx context.Context) ([]gormModels.ImportLog, error) {
	var logs []gormModels.ImportLog

	err := r.db.WithContext(ctx).
		Preload("Connection").
		Where("status = ?", constants.ImportStatusRunning).
		Order("started_at ASC").
		Find(&logs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list running imports: %w", err)
	}
	return logs, nil
}

// DeleteFinishedBefore purges terminal headers started before cutoff together
// with their details. Running headers are never matched.
func (r *ImportLogRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (logs int64, details int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&gormModels.ImportLog{}).
			Select("id").
			Where("started_at < ? AND status IN ?", cutoff, constants.TerminalImportStatuses)

		detailResult := tx.Where("import_log_id IN (?)", expired).Delete(&gormModels.ImportDetail{})
		if detailResult.Error != nil {
			return fmt.Errorf("failed to delete expired import details: %w", detailResult.Error)
		}

		logResult := tx.Where("started_at < ? AND status IN ?", cutoff, constants.TerminalImportStatuses).
			Delete(&gormModels.ImportLog{})
		if logResult.Error != nil {
			return fmt.Errorf("failed to delete expired import logs: %w", logResult.Error)
		}

		details = detailResult.RowsAffected
		logs = logResult.RowsAffected
		return nil
	})
	return logs, details, err
}
