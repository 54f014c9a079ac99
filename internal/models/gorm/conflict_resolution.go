package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models"
)

// ConflictResolution is one settled conflict on an order link. Rows are never
// updated; their presence blocks deletion of the link.
type ConflictResolution struct {
	ID                 string                       `gorm:"column:id;primaryKey;type:varchar(36)"`
	OrderLinkID        string                       `gorm:"column:order_link_id;type:varchar(36);not null;index"`
	ConflictType       string                       `gorm:"column:conflict_type;type:varchar(100);not null"`
	ResolutionStrategy constants.ResolutionStrategy `gorm:"column:resolution_strategy;type:varchar(30);not null"`
	LocalData          models.JSONB                 `gorm:"column:local_data"`
	ExternalData       models.JSONB                 `gorm:"column:external_data"`
	ResolvedData       models.JSONB                 `gorm:"column:resolved_data"`
	ResolvedBy         *int64                       `gorm:"column:resolved_by"`
	DetectedAt         *time.Time                   `gorm:"column:detected_at"`
	ResolvedAt         time.Time                    `gorm:"column:resolved_at;not null"`

	// Relationships
	OrderLink *OrderLink `gorm:"foreignKey:OrderLinkID"`
}

// TableName specifies the table name for GORM
func (ConflictResolution) TableName() string {
	return "order_link_conflict_resolutions"
}

// BeforeCreate assigns a UUID primary key when the caller has not
func (r *ConflictResolution) BeforeCreate(tx *gormlib.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
