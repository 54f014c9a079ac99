package dtos

import (
	"encoding/json"
	"time"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

// ---- CONNECTIONS ----

type CreateConnectionRequest struct {
	Name             string               `json:"name" validate:"required,max=100"`
	SystemType       constants.SystemType `json:"system_type" validate:"required"`
	IsActive         *bool                `json:"is_active,omitempty"`
	ConnectionConfig json.RawMessage      `json:"connection_config"`
	ImportSettings   json.RawMessage      `json:"import_settings,omitempty"`
	CredentialID     *string              `json:"credential_id,omitempty" validate:"omitempty,max=36"`
	CreatedBy        *int64               `json:"created_by,omitempty"`
}

// UpdateConnectionRequest is a partial update; nil fields are left untouched
type UpdateConnectionRequest struct {
	Name             *string               `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	SystemType       *constants.SystemType `json:"system_type,omitempty"`
	IsActive         *bool                 `json:"is_active,omitempty"`
	ConnectionConfig json.RawMessage       `json:"connection_config,omitempty"`
	ImportSettings   json.RawMessage       `json:"import_settings,omitempty"`
	CredentialID     *string               `json:"credential_id,omitempty" validate:"omitempty,max=36"`
}

type ConnectionFilter struct {
	SystemType   constants.SystemType
	IsActive     *bool
	NameContains string
	Limit        int
	Offset       int
}

// ---- SYNC STATE ----

// SyncResult is what the import runner reports after a successful cycle
type SyncResult struct {
	SyncCursor            *string                `json:"sync_cursor,omitempty"`
	LastExternalTimestamp *time.Time             `json:"last_external_timestamp,omitempty"`
	RecordsProcessed      int                    `json:"records_processed"`
	RecordsCreated        int                    `json:"records_created"`
	RecordsUpdated        int                    `json:"records_updated"`
	RecordsFailed         int                    `json:"records_failed"`
	Metadata              map[string]interface{} `json:"metadata,omitempty"`
}

type ForceFullSyncRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type ResetSyncStateRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ---- ORDER LINKS ----

type CreateOrderLinkRequest struct {
	OrderID           int64                    `json:"order_id" validate:"required,gt=0"`
	ConnectionID      string                   `json:"connection_id" validate:"required"`
	ExternalID        string                   `json:"external_id" validate:"required,max=255"`
	ExternalSystem    string                   `json:"external_system,omitempty" validate:"omitempty,max=100"`
	ExternalUpdatedAt *time.Time               `json:"external_updated_at,omitempty"`
	SyncStatus        constants.LinkSyncStatus `json:"sync_status,omitempty"`
}

type OrderLinkFilter struct {
	ConnectionID   string
	OrderID        int64
	SyncStatus     constants.LinkSyncStatus
	ExternalSystem string
	Limit          int
	Offset         int
}

// SyncStatusExtra carries optional fields merged alongside a status change
type SyncStatusExtra struct {
	ExternalUpdatedAt *time.Time
	Conflict          *MarkConflictRequest
}

type MarkConflictRequest struct {
	ConflictType string                 `json:"conflict_type" validate:"required,max=100"`
	Fields       []string               `json:"fields,omitempty"`
	LocalData    map[string]interface{} `json:"local_data,omitempty"`
	ExternalData map[string]interface{} `json:"external_data,omitempty"`
	DetectedAt   *time.Time             `json:"detected_at,omitempty"`
	Notes        string                 `json:"notes,omitempty"`
}

type ResolveConflictRequest struct {
	Strategy     constants.ResolutionStrategy `json:"resolution_strategy" validate:"required"`
	ResolvedData map[string]interface{}       `json:"resolved_data,omitempty"`
	ResolvedBy   *int64                       `json:"resolved_by,omitempty"`
	Notes        string                       `json:"notes,omitempty"`
}

// ---- IMPORTS ----

type StartImportRequest struct {
	ConnectionID string                 `json:"connection_id" validate:"required"`
	ImportType   constants.ImportType   `json:"import_type" validate:"required"`
	TotalRecords int                    `json:"total_records" validate:"gte=0"`
	InitiatedBy  *int64                 `json:"initiated_by,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ProgressUpdate sets absolute counter values; nil counters are left untouched
type ProgressUpdate struct {
	TotalRecords      *int `json:"total_records,omitempty" validate:"omitempty,gte=0"`
	ProcessedRecords  *int `json:"processed_records,omitempty" validate:"omitempty,gte=0"`
	SuccessfulRecords *int `json:"successful_records,omitempty" validate:"omitempty,gte=0"`
	FailedRecords     *int `json:"failed_records,omitempty" validate:"omitempty,gte=0"`
}

type ImportDetailRequest struct {
	ImportLogID  string                 `json:"import_log_id" validate:"required"`
	ExternalID   string                 `json:"external_id" validate:"required,max=255"`
	Action       constants.DetailAction `json:"action" validate:"required"`
	OrderID      *int64                 `json:"order_id,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	RawData      json.RawMessage        `json:"raw_data,omitempty"`
}

type DetailFilter struct {
	Action constants.DetailAction
	Limit  int
	Offset int
}

type ImportLogFilter struct {
	ConnectionID string
	Status       constants.ImportStatus
	ImportType   constants.ImportType
	Limit        int
	Offset       int
}

type CompleteImportRequest struct {
	Status       constants.ImportStatus `json:"status" validate:"required"`
	ErrorSummary *string                `json:"error_summary,omitempty"`
}

type CancelImportRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
