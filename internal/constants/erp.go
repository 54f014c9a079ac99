package constants

import (
	"database/sql/driver"
	"fmt"
)

// SystemType mirrors the connection system_type column
type SystemType string

const (
	SystemTypeSAPRest     SystemType = "sap_rest"
	SystemTypeSAPSoap     SystemType = "sap_soap"
	SystemTypeOracleERP   SystemType = "oracle_erp"
	SystemTypeNetSuite    SystemType = "netsuite"
	SystemTypeDynamics365 SystemType = "dynamics365"
	SystemTypeGenericRest SystemType = "generic_rest"
	SystemTypeGenericSoap SystemType = "generic_soap"
	SystemTypeCSVFile     SystemType = "csv_file"
	SystemTypeExcelFile   SystemType = "excel_file"
	SystemTypeCustom      SystemType = "custom"
)

// SystemTypes lists every supported system type in display order
var SystemTypes = []SystemType{
	SystemTypeSAPRest,
	SystemTypeSAPSoap,
	SystemTypeOracleERP,
	SystemTypeNetSuite,
	SystemTypeDynamics365,
	SystemTypeGenericRest,
	SystemTypeGenericSoap,
	SystemTypeCSVFile,
	SystemTypeExcelFile,
	SystemTypeCustom,
}

func (s SystemType) String() string { return string(s) }

// Valid reports whether s is one of the fixed system types
func (s SystemType) Valid() bool {
	for _, t := range SystemTypes {
		if t == s {
			return true
		}
	}
	return false
}

// IsFileBased is true for system types fed by uploaded files rather than an endpoint
func (s SystemType) IsFileBased() bool {
	return s == SystemTypeCSVFile || s == SystemTypeExcelFile
}

// AuthType is the discriminant of a connection auth_config
type AuthType string

const (
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeOAuth2 AuthType = "oauth2"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeCustom AuthType = "custom"
)

// DuplicateHandling controls what an import does with records it has already linked
type DuplicateHandling string

const (
	DuplicateSkip      DuplicateHandling = "skip"
	DuplicateUpdate    DuplicateHandling = "update"
	DuplicateCreateNew DuplicateHandling = "create_new"
)

// SyncStrategy mirrors sync_states.sync_strategy
type SyncStrategy string

const (
	SyncStrategyTimestamp     SyncStrategy = "timestamp"
	SyncStrategyCursor        SyncStrategy = "cursor"
	SyncStrategyIncrementalID SyncStrategy = "incremental_id"
)

func (s SyncStrategy) Valid() bool {
	switch s {
	case SyncStrategyTimestamp, SyncStrategyCursor, SyncStrategyIncrementalID:
		return true
	}
	return false
}

// SyncHealth is the derived health label of a sync state
type SyncHealth string

const (
	SyncHealthUnknown  SyncHealth = "unknown"
	SyncHealthHealthy  SyncHealth = "healthy"
	SyncHealthWarning  SyncHealth = "warning"
	SyncHealthCritical SyncHealth = "critical"
)

// Health thresholds. Critical checks run before warning checks.
const (
	HealthWarningFailures  = 3
	HealthCriticalFailures = 5
	HealthWarningHours     = 48
	HealthCriticalHours    = 72

	DefaultMaxFailures = 5
)

// LinkSyncStatus mirrors order_links.sync_status
type LinkSyncStatus string

const (
	LinkStatusSynced   LinkSyncStatus = "synced"
	LinkStatusPending  LinkSyncStatus = "pending"
	LinkStatusConflict LinkSyncStatus = "conflict"
	LinkStatusError    LinkSyncStatus = "error"
)

func (s LinkSyncStatus) String() string { return string(s) }

func (s LinkSyncStatus) Valid() bool {
	_, ok := linkTransitions[s]
	return ok
}

// linkTransitions lists, per current status, the statuses a link may move to
// through updateSyncStatus. conflict -> synced only happens through conflict resolution.
var linkTransitions = map[LinkSyncStatus]map[LinkSyncStatus]bool{
	LinkStatusSynced: {
		LinkStatusSynced: true, LinkStatusPending: true, LinkStatusError: true, LinkStatusConflict: true,
	},
	LinkStatusPending: {
		LinkStatusPending: true, LinkStatusSynced: true, LinkStatusError: true, LinkStatusConflict: true,
	},
	LinkStatusError: {
		LinkStatusError: true, LinkStatusPending: true, LinkStatusSynced: true, LinkStatusConflict: true,
	},
	LinkStatusConflict: {
		LinkStatusConflict: true, LinkStatusError: true,
	},
}

// CanTransitionTo reports whether a link in status s may be moved to next
func (s LinkSyncStatus) CanTransitionTo(next LinkSyncStatus) bool {
	return linkTransitions[s][next]
}

// Scan implements the sql.Scanner interface
func (s *LinkSyncStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = LinkStatusPending
	case string:
		*s = LinkSyncStatus(v)
	case []byte:
		*s = LinkSyncStatus(v)
	default:
		return fmt.Errorf("LinkSyncStatus: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s LinkSyncStatus) Value() (driver.Value, error) { return string(s), nil }

// ConflictResolutionStatus lives inside the conflict payload
type ConflictResolutionStatus string

const (
	ConflictUnresolved ConflictResolutionStatus = "unresolved"
	ConflictResolved   ConflictResolutionStatus = "resolved"
)

// ResolutionStrategy names how a conflict was settled
type ResolutionStrategy string

const (
	ResolutionLocalWins    ResolutionStrategy = "local_wins"
	ResolutionExternalWins ResolutionStrategy = "external_wins"
	ResolutionMerge        ResolutionStrategy = "merge"
	ResolutionManual       ResolutionStrategy = "manual"
)

func (r ResolutionStrategy) Valid() bool {
	switch r {
	case ResolutionLocalWins, ResolutionExternalWins, ResolutionMerge, ResolutionManual:
		return true
	}
	return false
}

// NeedsResolvedData is true for strategies where the caller must supply the settled record
func (r ResolutionStrategy) NeedsResolvedData() bool {
	return r == ResolutionMerge || r == ResolutionManual
}

// ImportType mirrors import_logs.import_type
type ImportType string

const (
	ImportTypeFull        ImportType = "full"
	ImportTypeIncremental ImportType = "incremental"
	ImportTypeManual      ImportType = "manual"
	ImportTypeScheduled   ImportType = "scheduled"
)

func (t ImportType) Valid() bool {
	switch t {
	case ImportTypeFull, ImportTypeIncremental, ImportTypeManual, ImportTypeScheduled:
		return true
	}
	return false
}

// ImportStatus mirrors import_logs.status
type ImportStatus string

const (
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
	ImportStatusCancelled ImportStatus = "cancelled"
)

// TerminalImportStatuses are the only statuses a running batch may move to
var TerminalImportStatuses = []ImportStatus{
	ImportStatusCompleted,
	ImportStatusFailed,
	ImportStatusCancelled,
}

// IsTerminal reports whether s ends a batch
func (s ImportStatus) IsTerminal() bool {
	for _, t := range TerminalImportStatuses {
		if t == s {
			return true
		}
	}
	return false
}

// CanTransitionTo allows running -> terminal exactly once
func (s ImportStatus) CanTransitionTo(next ImportStatus) bool {
	return s == ImportStatusRunning && next.IsTerminal()
}

// DetailAction mirrors import_details.action
type DetailAction string

const (
	DetailActionCreate DetailAction = "create"
	DetailActionUpdate DetailAction = "update"
	DetailActionSkip   DetailAction = "skip"
	DetailActionError  DetailAction = "error"
)

func (a DetailAction) Valid() bool {
	switch a {
	case DetailActionCreate, DetailActionUpdate, DetailActionSkip, DetailActionError:
		return true
	}
	return false
}

// Succeeded is true for every action except error
func (a DetailAction) Succeeded() bool {
	return a != DetailActionError
}
