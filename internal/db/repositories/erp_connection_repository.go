package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// ERPConnectionRepo handles erp_connections with GORM
type ERPConnectionRepo struct {
	db *gorm.DB
}

// DependentCounts is how many rows in each child table reference a connection
type DependentCounts struct {
	SyncStates int64
	ImportLogs int64
	OrderLinks int64
}

// Any reports whether at least one dependent row exists
func (d DependentCounts) Any() bool {
	return d.SyncStates > 0 || d.ImportLogs > 0 || d.OrderLinks > 0
}

func NewERPConnectionRepo(db *gorm.DB) *ERPConnectionRepo {
	return &ERPConnectionRepo{db: db}
}

// Transaction runs fn with a repo bound to a single database transaction
func (r *ERPConnectionRepo) Transaction(ctx context.Context, fn func(repo *ERPConnectionRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ERPConnectionRepo{db: tx})
	})
}

func (r *ERPConnectionRepo) Create(ctx context.Context, conn *gormModels.ERPConnection) error {
	if err := r.db.WithContext(ctx).Create(conn).Error; err != nil {
		return fmt.Errorf("failed to create erp connection: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the connection does not exist
func (r *ERPConnectionRepo) GetByID(ctx context.Context, id string) (*gormModels.ERPConnection, error) {
	var conn gormModels.ERPConnection

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conn).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch erp connection: %w", err)
	}

	return &conn, nil
}

// GetByName returns nil, nil when no connection carries the name
func (r *ERPConnectionRepo) GetByName(ctx context.Context, name string) (*gormModels.ERPConnection, error) {
	var conn gormModels.ERPConnection

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&conn).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch erp connection by name: %w", err)
	}

	return &conn, nil
}

// List returns connections matching the filter ordered by name
func (r *ERPConnectionRepo) List(ctx context.Context, filter dtos.ConnectionFilter) ([]gormModels.ERPConnection, error) {
	var conns []gormModels.ERPConnection

	q := r.db.WithContext(ctx).Model(&gormModels.ERPConnection{})
	if filter.SystemType != "" {
		q = q.Where("system_type = ?", filter.SystemType)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if name := strings.TrimSpace(filter.NameContains); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Order("name ASC").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list erp connections: %w", err)
	}
	return conns, nil
}

// Save writes every column of an existing connection
func (r *ERPConnectionRepo) Save(ctx context.Context, conn *gormModels.ERPConnection) error {
	if err := r.db.WithContext(ctx).Save(conn).Error; err != nil {
		return fmt.Errorf("failed to update erp connection: %w", err)
	}
	return nil
}

// Delete removes the connection row and reports whether it existed
func (r *ERPConnectionRepo) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&gormModels.ERPConnection{})

	if result.Error != nil {
		return false, fmt.Errorf("failed to delete erp connection: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountDependents counts sync states, import logs and order links pointing at the connection
func (r *ERPConnectionRepo) CountDependents(ctx context.Context, id string) (DependentCounts, error) {
	var counts DependentCounts
	db := r.db.WithContext(ctx)

	if err := db.Model(&gormModels.SyncState{}).Where("connection_id = ?", id).Count(&counts.SyncStates).Error; err != nil {
		return counts, fmt.Errorf("failed to count sync states: %w", err)
	}
	if err := db.Model(&gormModels.ImportLog{}).Where("connection_id = ?", id).Count(&counts.ImportLogs).Error; err != nil {
		return counts, fmt.Errorf("failed to count import logs: %w", err)
	}
	if err := db.Model(&gormModels.OrderLink{}).Where("connection_id = ?", id).Count(&counts.OrderLinks).Error; err != nil {
		return counts, fmt.Errorf("failed to count order links: %w", err)
	}

	return counts, nil
}
