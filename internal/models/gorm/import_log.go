package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models"
)

// ImportLog is the header of one import run
type ImportLog struct {
	ID                string                 `gorm:"column:id;primaryKey;type:varchar(36)"`
	ConnectionID      string                 `gorm:"column:connection_id;type:varchar(36);not null;index"`
	ImportType        constants.ImportType   `gorm:"column:import_type;type:varchar(20);not null"`
	Status            constants.ImportStatus `gorm:"column:status;type:varchar(20);not null;index"`
	StartedAt         time.Time              `gorm:"column:started_at;not null;index"`
	CompletedAt       *time.Time             `gorm:"column:completed_at"`
	TotalRecords      int                    `gorm:"column:total_records;not null"`
	ProcessedRecords  int                    `gorm:"column:processed_records;not null"`
	SuccessfulRecords int                    `gorm:"column:successful_records;not null"`
	FailedRecords     int                    `gorm:"column:failed_records;not null"`
	ErrorSummary      *string                `gorm:"column:error_summary;type:text"`
	InitiatedBy       *int64                 `gorm:"column:initiated_by"`
	Metadata          models.JSONB           `gorm:"column:metadata"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Connection *ERPConnection `gorm:"foreignKey:ConnectionID"`
	Details    []ImportDetail `gorm:"foreignKey:ImportLogID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for GORM
func (ImportLog) TableName() string {
	return "import_logs"
}

// BeforeCreate assigns a UUID primary key when the caller has not
func (l *ImportLog) BeforeCreate(tx *gormlib.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// DurationMinutes is the wall time of a finished batch, nil while running
func (l *ImportLog) DurationMinutes() *float64 {
	if l.CompletedAt == nil {
		return nil
	}
	minutes := l.CompletedAt.Sub(l.StartedAt).Minutes()
	return &minutes
}

// ImportDetail is one processed external record inside a batch. Append-only.
type ImportDetail struct {
	ID           string                 `gorm:"column:id;primaryKey;type:varchar(36)"`
	ImportLogID  string                 `gorm:"column:import_log_id;type:varchar(36);not null;index"`
	ExternalID   string                 `gorm:"column:external_id;type:varchar(255);not null"`
	Action       constants.DetailAction `gorm:"column:action;type:varchar(10);not null;index"`
	OrderID      *int64                 `gorm:"column:order_id"`
	ErrorMessage *string                `gorm:"column:error_message;type:text"`
	RawData      datatypes.JSON         `gorm:"column:raw_data"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (ImportDetail) TableName() string {
	return "import_details"
}

// BeforeCreate assigns a UUID primary key when the caller has not
func (d *ImportDetail) BeforeCreate(tx *gormlib.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
