package dtos

import (
	"encoding/json"
	"time"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

type APIResponse struct {
	Status       string      `json:"status"`
	Message      string      `json:"message,omitempty"`
	ResponseTime string      `json:"response_time,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// ---- CONNECTIONS ----

type ConnectionResponse struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	SystemType       constants.SystemType `json:"system_type"`
	IsActive         bool                 `json:"is_active"`
	ConnectionConfig json.RawMessage      `json:"connection_config"`
	ImportSettings   json.RawMessage      `json:"import_settings"`
	HasCredential    bool                 `json:"has_credential"`
	CreatedBy        *int64               `json:"created_by,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// TestResult is the outcome of a static connection check
type TestResult struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details"`
	Warnings    []string               `json:"warnings"`
	Suggestions []string               `json:"suggestions"`
	Errors      []string               `json:"errors,omitempty"`
}

type SecurityAudit struct {
	Score    int      `json:"score"`
	Warnings []string `json:"warnings"`
}

type ConnectionTemplate struct {
	SystemType       constants.SystemType   `json:"system_type"`
	Description      string                 `json:"description"`
	ConnectionConfig map[string]interface{} `json:"connection_config"`
	ImportSettings   map[string]interface{} `json:"import_settings"`
}

// ---- SYNC STATE ----

type SyncStateResponse struct {
	ID                    string                 `json:"id"`
	ConnectionID          string                 `json:"connection_id"`
	SyncStrategy          constants.SyncStrategy `json:"sync_strategy"`
	LastSyncAt            *time.Time             `json:"last_sync_at"`
	LastSuccessfulSync    *time.Time             `json:"last_successful_sync"`
	LastExternalTimestamp *time.Time             `json:"last_external_timestamp"`
	SyncCursor            *string                `json:"sync_cursor"`
	ConsecutiveFailures   int                    `json:"consecutive_failures"`
	IsFullSyncRequired    bool                   `json:"is_full_sync_required"`
	Metadata              map[string]interface{} `json:"metadata"`
	Health                constants.SyncHealth   `json:"health"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// SyncAttentionItem is one row of the monitoring sweep
type SyncAttentionItem struct {
	ConnectionID        string               `json:"connection_id"`
	ConnectionName      string               `json:"connection_name"`
	SystemType          constants.SystemType `json:"system_type"`
	Health              constants.SyncHealth `json:"health"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	IsFullSyncRequired  bool                 `json:"is_full_sync_required"`
	LastSuccessfulSync  *time.Time           `json:"last_successful_sync"`
	HoursSinceSuccess   *float64             `json:"hours_since_success,omitempty"`
	Reasons             []string             `json:"reasons"`
}

// ---- IMPORTS ----

// ImportStats aggregates import batches over a trailing window. Rates are percentages.
type ImportStats struct {
	WindowDays         int     `json:"window_days"`
	TotalImports       int     `json:"total_imports"`
	CompletedImports   int     `json:"completed_imports"`
	FailedImports      int     `json:"failed_imports"`
	RunningImports     int     `json:"running_imports"`
	CancelledImports   int     `json:"cancelled_imports"`
	TotalRecords       int     `json:"total_records"`
	ProcessedRecords   int     `json:"processed_records"`
	SuccessfulRecords  int     `json:"successful_records"`
	FailedRecords      int     `json:"failed_records"`
	SkippedRecords     int     `json:"skipped_records"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	SuccessRate        float64 `json:"success_rate"`
	RecordSuccessRate  float64 `json:"record_success_rate"`
}

type ImportLogResponse struct {
	ID                string                 `json:"id"`
	ConnectionID      string                 `json:"connection_id"`
	ImportType        constants.ImportType   `json:"import_type"`
	Status            constants.ImportStatus `json:"status"`
	StartedAt         time.Time              `json:"started_at"`
	CompletedAt       *time.Time             `json:"completed_at"`
	TotalRecords      int                    `json:"total_records"`
	ProcessedRecords  int                    `json:"processed_records"`
	SuccessfulRecords int                    `json:"successful_records"`
	FailedRecords     int                    `json:"failed_records"`
	ErrorSummary      *string                `json:"error_summary"`
	InitiatedBy       *int64                 `json:"initiated_by,omitempty"`
	Metadata          map[string]interface{} `json:"metadata"`
}

type ImportDetailResponse struct {
	ID           string                 `json:"id"`
	ImportLogID  string                 `json:"import_log_id"`
	ExternalID   string                 `json:"external_id"`
	Action       constants.DetailAction `json:"action"`
	OrderID      *int64                 `json:"order_id,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	RawData      json.RawMessage        `json:"raw_data,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ---- ORDER LINKS ----

type OrderLinkResponse struct {
	ID                string                   `json:"id"`
	OrderID           int64                    `json:"order_id"`
	ConnectionID      string                   `json:"connection_id"`
	ExternalID        string                   `json:"external_id"`
	ExternalSystem    string                   `json:"external_system"`
	ExternalUpdatedAt *time.Time               `json:"external_updated_at"`
	SyncStatus        constants.LinkSyncStatus `json:"sync_status"`
	ConflictData      interface{}              `json:"conflict_data"`
	LastSyncAt        *time.Time               `json:"last_sync_at"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}
