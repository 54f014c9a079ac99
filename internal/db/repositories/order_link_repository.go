package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// OrderLinkRepo handles order_links and their conflict resolution history
type OrderLinkRepo struct {
	db *gorm.DB
}

func NewOrderLinkRepo(db *gorm.DB) *OrderLinkRepo {
	return &OrderLinkRepo{db: db}
}

// Transaction runs fn with a repo bound to a single database transaction
func (r *OrderLinkRepo) Transaction(ctx context.Context, fn func(repo *OrderLinkRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&OrderLinkRepo{db: tx})
	})
}

func (r *OrderLinkRepo) Create(ctx context.Context, link *gormModels.OrderLink) error {
	if err := r.db.WithContext(ctx).Omit("Connection").Create(link).Error; err != nil {
		return fmt.Errorf("failed to create order link: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the link does not exist
func (r *OrderLinkRepo) GetByID(ctx context.Context, id string) (*gormModels.OrderLink, error) {
	var link gormModels.OrderLink

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch order link: %w", err)
	}

	return &link, nil
}

// GetByExternalID looks a link up by its (external_id, connection_id) key
func (r *OrderLinkRepo) GetByExternalID(ctx context.Context, externalID, connectionID string) (*gormModels.OrderLink, error) {
	var link gormModels.OrderLink

	err := r.db.WithContext(ctx).
		Where("external_id = ? AND connection_id = ?", externalID, connectionID).
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch order link by external id: %w", err)
	}

	return &link, nil
}

// GetByIDs loads several links at once, in no particular order
func (r *OrderLinkRepo) GetByIDs(ctx context.Context, ids []string) ([]gormModels.OrderLink, error) {
	var links []gormModels.OrderLink

	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch order links: %w", err)
	}
	return links, nil
}

// ListByOrderID returns every link of one local order, across connections
func (r *OrderLinkRepo) ListByOrderID(ctx context.Context, orderID int64) ([]gormModels.OrderLink, error) {
	var links []gormModels.OrderLink

	err := r.db.WithContext(ctx).
		Preload("Connection").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&links).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list order links by order: %w", err)
	}
	return links, nil
}

func (r *OrderLinkRepo) List(ctx context.Context, filter dtos.OrderLinkFilter) ([]gormModels.OrderLink, error) {
	var links []gormModels.OrderLink

	q := r.db.WithContext(ctx).Model(&gormModels.OrderLink{})
	if filter.ConnectionID != "" {
		q = q.Where("connection_id = ?", filter.ConnectionID)
	}
	if filter.OrderID > 0 {
		q = q.Where("order_id = ?", filter.OrderID)
	}
	if filter.SyncStatus != "" {
		q = q.Where("sync_status = ?", filter.SyncStatus)
	}
	if filter.ExternalSystem != "" {
		q = q.Where("external_system = ?", filter.ExternalSystem)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Order("updated_at DESC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list order links: %w", err)
	}
	return links, nil
}

// ListNeedingSync is the sync worklist: pending or error links, least recently updated first
func (r *OrderLinkRepo) ListNeedingSync(ctx context.Context, connectionID string, limit int) ([]gormModels.OrderLink, error) {
	var links []gormModels.OrderLink

	q := r.db.WithContext(ctx).
		Where("sync_status IN ?", []constants.LinkSyncStatus{constants.LinkStatusPending, constants.LinkStatusError})
	if connectionID != "" {
		q = q.Where("connection_id = ?", connectionID)
	}

	err := q.Order("updated_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&links).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list order links needing sync: %w", err)
	}
	return links, nil
}

// ListConflicts returns links currently in conflict, most recently updated first
func (r *OrderLinkRepo) ListConflicts(ctx context.Context, connectionID string) ([]gormModels.OrderLink, error) {
	var links []gormModels.OrderLink

	q := r.db.WithContext(ctx).
		Preload("Connection").
		Where("sync_status = ?", constants.LinkStatusConflict)
	if connectionID != "" {
		q = q.Where("connection_id = ?", connectionID)
	}

	if err := q.Order("updated_at DESC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list order link conflicts: %w", err)
	}
	return links, nil
}

// Save writes every column of an existing link
func (r *OrderLinkRepo) Save(ctx context.Context, link *gormModels.OrderLink) error {
	if err := r.db.WithContext(ctx).Omit("Connection").Save(link).Error; err != nil {
		return fmt.Errorf("failed to update order link: %w", err)
	}
	return nil
}

// Delete removes the link row and reports whether it existed
func (r *OrderLinkRepo) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&gormModels.OrderLink{})

	if result.Error != nil {
		return false, fmt.Errorf("failed to delete order link: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *OrderLinkRepo) CreateResolution(ctx context.Context, res *gormModels.ConflictResolution) error {
	if err := r.db.WithContext(ctx).Omit("OrderLink").Create(res).Error; err != nil {
		return fmt.Errorf("failed to record conflict resolution: %w", err)
	}
	return nil
}

func (r *OrderLinkRepo) CountResolutions(ctx context.Context, linkID string) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&gormModels.ConflictResolution{}).
		Where("order_link_id = ?", linkID).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count conflict resolutions: %w", err)
	}
	return count, nil
}

// ListResolutions returns the resolution history of a link, oldest first
func (r *OrderLinkRepo) ListResolutions(ctx context.Context, linkID string) ([]gormModels.ConflictResolution, error) {
	var history []gormModels.ConflictResolution

	err := r.db.WithContext(ctx).
		Where("order_link_id = ?", linkID).
		Order("resolved_at ASC").
		Find(&history).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list conflict resolutions: %w", err)
	}
	return history, nil
}
