package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
)

// ConflictPayloadVersion is bumped whenever the stored conflict document changes shape
const ConflictPayloadVersion = 1

// ConflictPayload is the structured conflict document kept on an order link.
// The zero value (no ConflictType) is stored as NULL.
type ConflictPayload struct {
	SchemaVersion      int                                `json:"schema_version"`
	ConflictType       string                             `json:"conflict_type"`
	Fields             []string                           `json:"fields,omitempty"`
	LocalData          map[string]interface{}             `json:"local_data,omitempty"`
	ExternalData       map[string]interface{}             `json:"external_data,omitempty"`
	DetectedAt         *time.Time                         `json:"detected_at,omitempty"`
	Status             constants.ConflictResolutionStatus `json:"status"`
	ResolutionStrategy constants.ResolutionStrategy       `json:"resolution_strategy,omitempty"`
	ResolvedData       map[string]interface{}             `json:"resolved_data,omitempty"`
	ResolvedBy         *int64                             `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time                         `json:"resolved_at,omitempty"`
	Notes              string                             `json:"notes,omitempty"`
}

// IsZero reports whether the link carries no conflict document
func (p ConflictPayload) IsZero() bool {
	return p.ConflictType == ""
}

// Scan implements the sql.Scanner interface. Corrupt documents degrade to the zero payload.
func (p *ConflictPayload) Scan(value interface{}) error {
	*p = ConflictPayload{}

	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		logging.Warn("Unsupported conflict_data column type, ignoring", "type", fmt.Sprintf("%T", value))
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var decoded ConflictPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logging.Warn("Corrupt conflict_data column, treating as empty", "error", err.Error())
		return nil
	}
	*p = decoded
	return nil
}

// Value implements the driver.Valuer interface
func (p ConflictPayload) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	if p.SchemaVersion == 0 {
		p.SchemaVersion = ConflictPayloadVersion
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conflict payload: %w", err)
	}
	return string(b), nil
}

// GormDBDataType picks jsonb on postgres and a plain JSON text column elsewhere
func (ConflictPayload) GormDBDataType(db *gormlib.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

// OrderLink maps one external order record to one local manufacturing order
type OrderLink struct {
	ID                string                   `gorm:"column:id;primaryKey;type:varchar(36)"`
	OrderID           int64                    `gorm:"column:order_id;not null;index"`
	ConnectionID      string                   `gorm:"column:connection_id;type:varchar(36);not null;uniqueIndex:idx_order_links_external,priority:2;index"`
	ExternalID        string                   `gorm:"column:external_id;type:varchar(255);not null;uniqueIndex:idx_order_links_external,priority:1"`
	ExternalSystem    string                   `gorm:"column:external_system;type:varchar(100);not null"`
	ExternalUpdatedAt *time.Time               `gorm:"column:external_updated_at"`
	SyncStatus        constants.LinkSyncStatus `gorm:"column:sync_status;type:varchar(20);not null;index"`
	ConflictData      ConflictPayload          `gorm:"column:conflict_data"`
	LastSyncAt        *time.Time               `gorm:"column:last_sync_at"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Connection *ERPConnection `gorm:"foreignKey:ConnectionID"`
}

// TableName specifies the table name for GORM
func (OrderLink) TableName() string {
	return "order_links"
}

// BeforeCreate assigns a UUID primary key when the caller has not
func (l *OrderLink) BeforeCreate(tx *gormlib.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
