package constants

// ERP sync error codes. Callers branch on these through services.ServiceError.
const (
	ErrCodeValidation = "VALIDATION_FAILED"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeStorage    = "STORAGE_ERROR"
)

// State invariant violations
const (
	ErrCodeDuplicateName           = "DUPLICATE_CONNECTION_NAME"
	ErrCodeDuplicateExternalID     = "DUPLICATE_EXTERNAL_ID"
	ErrCodeSyncStateExists         = "SYNC_STATE_EXISTS"
	ErrCodeDependentRecords        = "DEPENDENT_RECORDS_EXIST"
	ErrCodeLinkNotInConflict       = "LINK_NOT_IN_CONFLICT"
	ErrCodeInvalidTransition       = "INVALID_STATUS_TRANSITION"
	ErrCodeImportNotRunning        = "IMPORT_NOT_RUNNING"
	ErrCodeCounterRegression       = "PROGRESS_COUNTER_REGRESSION"
	ErrCodeResolutionHistoryExists = "CONFLICT_HISTORY_EXISTS"
)

var ErrorMessages = map[string]string{
	ErrCodeValidation: "The request failed validation",
	ErrCodeNotFound:   "The requested record does not exist",
	ErrCodeStorage:    "The database operation failed",

	ErrCodeDuplicateName:           "A connection with this name already exists",
	ErrCodeDuplicateExternalID:     "This external record is already linked for the connection",
	ErrCodeSyncStateExists:         "Sync state has already been initialised for this connection",
	ErrCodeDependentRecords:        "The connection still has sync state, import logs or order links",
	ErrCodeLinkNotInConflict:       "Only links in conflict status can be resolved",
	ErrCodeInvalidTransition:       "The requested status transition is not allowed",
	ErrCodeImportNotRunning:        "The import batch is no longer running",
	ErrCodeCounterRegression:       "Import progress counters cannot decrease",
	ErrCodeResolutionHistoryExists: "The link has conflict resolution history and cannot be deleted",
}

// GetErrorMessage returns the human-readable message for an ERP sync error code
func GetErrorMessage(code string) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
