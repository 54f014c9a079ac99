package entities

import "time"

// ImportStatsRow is one import_logs header as read by the stats aggregation
type ImportStatsRow struct {
	Status            string     `db:"status"`
	StartedAt         time.Time  `db:"started_at"`
	CompletedAt       *time.Time `db:"completed_at"`
	TotalRecords      int        `db:"total_records"`
	ProcessedRecords  int        `db:"processed_records"`
	SuccessfulRecords int        `db:"successful_records"`
	FailedRecords     int        `db:"failed_records"`
}
