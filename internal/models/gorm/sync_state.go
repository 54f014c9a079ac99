package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models"
)

// SyncState tracks incremental sync progress for exactly one connection
type SyncState struct {
	ID                    string                 `gorm:"column:id;primaryKey;type:varchar(36)"`
	ConnectionID          string                 `gorm:"column:connection_id;type:varchar(36);not null;uniqueIndex:idx_sync_states_connection"`
	SyncStrategy          constants.SyncStrategy `gorm:"column:sync_strategy;type:varchar(20);not null"`
	LastSyncAt            *time.Time             `gorm:"column:last_sync_at"`
	LastSuccessfulSync    *time.Time             `gorm:"column:last_successful_sync"`
	LastExternalTimestamp *time.Time             `gorm:"column:last_external_timestamp"`
	SyncCursor            *string                `gorm:"column:sync_cursor;type:text"`
	ConsecutiveFailures   int                    `gorm:"column:consecutive_failures;not null"`
	IsFullSyncRequired    bool                   `gorm:"column:is_full_sync_required;not null"`
	Metadata              models.JSONB           `gorm:"column:metadata"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Connection *ERPConnection `gorm:"foreignKey:ConnectionID"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "sync_states"
}

// BeforeCreate assigns a UUID primary key when the caller has not
func (s *SyncState) BeforeCreate(tx *gormlib.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
