package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

// ERPConnection is one configured external ERP endpoint
type ERPConnection struct {
	ID               string               `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name             string               `gorm:"column:name;type:varchar(100);not null;uniqueIndex:idx_erp_connections_name"`
	SystemType       constants.SystemType `gorm:"column:system_type;type:varchar(50);not null;index"`
	IsActive         bool                 `gorm:"column:is_active;not null"`
	ConnectionConfig datatypes.JSON       `gorm:"column:connection_config;not null"`
	ImportSettings   datatypes.JSON       `gorm:"column:import_settings"`
	CredentialID     *string              `gorm:"column:credential_id;type:varchar(36)"`
	CreatedBy        *int64               `gorm:"column:created_by"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ERPConnection) TableName() string {
	return "erp_connections"
}

// BeforeCreate assigns a UUID primary key when the caller has not
func (c *ERPConnection) BeforeCreate(tx *gormlib.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
