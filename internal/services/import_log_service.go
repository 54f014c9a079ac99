package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

const (
	metaCancelReason = "cancel_reason"
	metaCancelledAt  = "cancelled_at"
)

// ImportLogService is the audit trail of import batches: one header per run
// and one append-only detail row per processed external record
type ImportLogService struct {
	repo        *repositories.ImportLogRepo
	stats       *repositories.ImportStatsRepo
	connections *repositories.ERPConnectionRepo
	metrics     *metrics.MetricsRegistry
	validate    *validator.Validate

	// Now is the clock used for every timestamp the service writes
	Now func() time.Time
}

func NewImportLogService(repo *repositories.ImportLogRepo, stats *repositories.ImportStatsRepo, connections *repositories.ERPConnectionRepo, metricsReg *metrics.MetricsRegistry) *ImportLogService {
	return &ImportLogService{
		repo:        repo,
		stats:       stats,
		connections: connections,
		metrics:     metricsReg,
		validate:    newValidator(),
		Now:         time.Now,
	}
}

func (s *ImportLogService) now() time.Time {
	return s.Now().UTC()
}

// StartImport opens a batch in running status
func (s *ImportLogService) StartImport(ctx context.Context, req dtos.StartImportRequest) (*gormModels.ImportLog, error) {
	if err := validateStruct(s.validate, "", req); err != nil {
		return nil, err
	}
	if !req.ImportType.Valid() {
		return nil, validationError("import_type",
			fmt.Sprintf("unsupported value %q (allowed: full, incremental, manual, scheduled)", req.ImportType))
	}

	conn, err := s.connections.GetByID(ctx, req.ConnectionID)
	if err != nil {
		return nil, storageError("failed to load connection", err)
	}
	if conn == nil {
		return nil, notFound("connection", req.ConnectionID)
	}

	log := &gormModels.ImportLog{
		ConnectionID: req.ConnectionID,
		ImportType:   req.ImportType,
		Status:       constants.ImportStatusRunning,
		StartedAt:    s.now(),
		TotalRecords: req.TotalRecords,
		InitiatedBy:  req.InitiatedBy,
		Metadata:     models.JSONB{},
	}
	log.Metadata.Merge(req.Metadata)

	if err := s.repo.Create(ctx, log); err != nil {
		return nil, storageError("failed to start import", err)
	}

	s.metrics.ImportBatch(constants.ImportStatusRunning)
	logging.WithConnection(log.ConnectionID).Infow("Import started",
		"import_id", log.ID,
		"import_type", log.ImportType,
		"total_records", log.TotalRecords,
	)
	return log, nil
}

// UpdateProgress sets absolute counter values on a running batch. Counters
// never go backwards.
func (s *ImportLogService) UpdateProgress(ctx context.Context, id string, update dtos.ProgressUpdate) (*gormModels.ImportLog, error) {
	if err := validateStruct(s.validate, "", update); err != nil {
		return nil, err
	}

	var out *gormModels.ImportLog
	err := s.repo.Transaction(ctx, func(repo *repositories.ImportLogRepo) error {
		log, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load import log", err)
		}
		if log == nil {
			return notFound("import log", id)
		}
		if log.Status != constants.ImportStatusRunning {
			return importNotRunning(log)
		}

		counters := []struct {
			field string
			dst   *int
			next  *int
		}{
			{"total_records", &log.TotalRecords, update.TotalRecords},
			{"processed_records", &log.ProcessedRecords, update.ProcessedRecords},
			{"successful_records", &log.SuccessfulRecords, update.SuccessfulRecords},
			{"failed_records", &log.FailedRecords, update.FailedRecords},
		}
		for _, c := range counters {
			if c.next == nil {
				continue
			}
			if *c.next < *c.dst {
				return &ServiceError{
					Code:    constants.ErrCodeCounterRegression,
					Field:   c.field,
					Message: fmt.Sprintf("cannot decrease from %d to %d", *c.dst, *c.next),
				}
			}
			*c.dst = *c.next
		}
		if log.ProcessedRecords > log.TotalRecords {
			log.TotalRecords = log.ProcessedRecords
		}

		if err := repo.Save(ctx, log); err != nil {
			return storageError("failed to update import progress", err)
		}
		out = log
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to update import progress", err)
	}
	return out, nil
}

// CompleteImport moves a running batch to a terminal status, exactly once
func (s *ImportLogService) CompleteImport(ctx context.Context, id string, req dtos.CompleteImportRequest) (*gormModels.ImportLog, error) {
	if err := validateStruct(s.validate, "", req); err != nil {
		return nil, err
	}
	if !req.Status.IsTerminal() {
		return nil, validationError("status",
			fmt.Sprintf("unsupported value %q (allowed: completed, failed, cancelled)", req.Status))
	}

	log, err := s.finish(ctx, id, req.Status, emptyToNil(req.ErrorSummary), nil)
	if err != nil {
		return nil, err
	}

	fields := []interface{}{
		"import_id", log.ID,
		"status", log.Status,
		"processed_records", log.ProcessedRecords,
		"failed_records", log.FailedRecords,
	}
	if d := log.DurationMinutes(); d != nil {
		fields = append(fields, "duration_minutes", math.Round(*d*100)/100)
	}
	if log.Status == constants.ImportStatusFailed {
		logging.WithConnection(log.ConnectionID).Warnw("Import finished", fields...)
	} else {
		logging.WithConnection(log.ConnectionID).Infow("Import finished", fields...)
	}
	return log, nil
}

// CancelImport flips a running batch to cancelled. In-flight work is not interrupted.
func (s *ImportLogService) CancelImport(ctx context.Context, id, reason string) (*gormModels.ImportLog, error) {
	reason = strings.TrimSpace(reason)
	if err := validateStruct(s.validate, "", dtos.CancelImportRequest{Reason: reason}); err != nil {
		return nil, err
	}

	summary := "cancelled: " + reason
	log, err := s.finish(ctx, id, constants.ImportStatusCancelled, &summary, func(meta models.JSONB, now time.Time) {
		meta[metaCancelReason] = reason
		meta[metaCancelledAt] = now.Format(time.RFC3339)
	})
	if err != nil {
		return nil, err
	}

	logging.WithConnection(log.ConnectionID).Infow("Import cancelled", "import_id", log.ID, "reason", reason)
	return log, nil
}

// finish performs the single running -> terminal transition of a batch
func (s *ImportLogService) finish(ctx context.Context, id string, status constants.ImportStatus, errorSummary *string, annotate func(meta models.JSONB, now time.Time)) (*gormModels.ImportLog, error) {
	now := s.now()
	var out *gormModels.ImportLog

	err := s.repo.Transaction(ctx, func(repo *repositories.ImportLogRepo) error {
		log, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load import log", err)
		}
		if log == nil {
			return notFound("import log", id)
		}
		if !log.Status.CanTransitionTo(status) {
			return importNotRunning(log)
		}

		ok, err := repo.FinishRunning(ctx, id, status, now, errorSummary)
		if err != nil {
			return storageError("failed to finish import", err)
		}
		if !ok {
			return importNotRunning(log)
		}

		if annotate != nil {
			meta := log.Metadata.Clone()
			annotate(meta, now)
			if err := repo.UpdateMetadata(ctx, id, meta, now); err != nil {
				return storageError("failed to annotate import", err)
			}
		}

		out, err = repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to reload import log", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to finish import", err)
	}

	s.metrics.ImportBatch(status)
	return out, nil
}

// AddDetail records one processed external record on a running batch
func (s *ImportLogService) AddDetail(ctx context.Context, req dtos.ImportDetailRequest) (*gormModels.ImportDetail, error) {
	details, err := s.AddDetails(ctx, req.ImportLogID, []dtos.ImportDetailRequest{req})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// AddDetails records many external records atomically and folds their
// outcomes into the header counters. Skips count as successful.
func (s *ImportLogService) AddDetails(ctx context.Context, importLogID string, reqs []dtos.ImportDetailRequest) ([]gormModels.ImportDetail, error) {
	if strings.TrimSpace(importLogID) == "" {
		return nil, validationError("import_log_id", "is required")
	}
	if len(reqs) == 0 {
		return nil, validationError("details", "at least one detail is required")
	}

	details := make([]gormModels.ImportDetail, 0, len(reqs))
	var delta repositories.CounterDelta

	for i, req := range reqs {
		prefix := ""
		if len(reqs) > 1 {
			prefix = fmt.Sprintf("details[%d]", i)
		}
		if req.ImportLogID == "" {
			req.ImportLogID = importLogID
		}
		req.ExternalID = strings.TrimSpace(req.ExternalID)

		if err := validateStruct(s.validate, prefix, req); err != nil {
			return nil, err
		}
		if req.ImportLogID != importLogID {
			return nil, validationError(joinField(prefix, "import_log_id"), "does not match the batch being written")
		}
		if !req.Action.Valid() {
			return nil, validationError(joinField(prefix, "action"),
				fmt.Sprintf("unsupported value %q (allowed: create, update, skip, error)", req.Action))
		}

		detail := gormModels.ImportDetail{
			ImportLogID:  importLogID,
			ExternalID:   req.ExternalID,
			Action:       req.Action,
			OrderID:      req.OrderID,
			ErrorMessage: emptyToNil(req.ErrorMessage),
		}
		if raw := strings.TrimSpace(string(req.RawData)); raw != "" {
			if !json.Valid([]byte(raw)) {
				return nil, validationError(joinField(prefix, "raw_data"), "must be valid JSON")
			}
			detail.RawData = datatypes.JSON(raw)
		}
		details = append(details, detail)

		delta.Processed++
		if req.Action.Succeeded() {
			delta.Successful++
		} else {
			delta.Failed++
		}
	}

	now := s.now()
	err := s.repo.Transaction(ctx, func(repo *repositories.ImportLogRepo) error {
		log, err := repo.GetByID(ctx, importLogID)
		if err != nil {
			return storageError("failed to load import log", err)
		}
		if log == nil {
			return notFound("import log", importLogID)
		}
		if log.Status != constants.ImportStatusRunning {
			return importNotRunning(log)
		}

		if err := repo.CreateDetails(ctx, details); err != nil {
			return storageError("failed to record import details", err)
		}
		ok, err := repo.AddToCounters(ctx, importLogID, delta, now)
		if err != nil {
			return storageError("failed to update import counters", err)
		}
		if !ok {
			return importNotRunning(log)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to record import details", err)
	}

	for _, d := range details {
		s.metrics.ImportRecord(d.Action)
	}
	logging.Debug("Import details recorded",
		"import_id", importLogID,
		"count", len(details),
		"failed", delta.Failed,
	)
	return details, nil
}

func (s *ImportLogService) GetImportLog(ctx context.Context, id string) (*gormModels.ImportLog, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("failed to load import log", err)
	}
	if log == nil {
		return nil, notFound("import log", id)
	}
	return log, nil
}

// GetImportDetails lists the detail rows of a batch, oldest first
func (s *ImportLogService) GetImportDetails(ctx context.Context, id string, filter dtos.DetailFilter) ([]gormModels.ImportDetail, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, validationError("action",
			fmt.Sprintf("unsupported value %q (allowed: create, update, skip, error)", filter.Action))
	}
	if _, err := s.GetImportLog(ctx, id); err != nil {
		return nil, err
	}

	filter.Limit = clampLimit(filter.Limit, constants.MaxPageSize)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	details, err := s.repo.ListDetails(ctx, id, filter)
	if err != nil {
		return nil, storageError("failed to list import details", err)
	}
	return details, nil
}

func (s *ImportLogService) FindAll(ctx context.Context, filter dtos.ImportLogFilter) ([]gormModels.ImportLog, error) {
	if filter.Status != "" && filter.Status != constants.ImportStatusRunning && !filter.Status.IsTerminal() {
		return nil, validationError("status",
			fmt.Sprintf("unsupported value %q (allowed: running, completed, failed, cancelled)", filter.Status))
	}
	if filter.ImportType != "" && !filter.ImportType.Valid() {
		return nil, validationError("import_type",
			fmt.Sprintf("unsupported value %q (allowed: full, incremental, manual, scheduled)", filter.ImportType))
	}
	filter.Limit = clampLimit(filter.Limit, constants.DefaultNeedingSyncLimit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError("failed to list import logs", err)
	}
	return logs, nil
}

func (s *ImportLogService) GetRunningImports(ctx context.Context) ([]gormModels.ImportLog, error) {
	logs, err := s.repo.ListRunning(ctx)
	if err != nil {
		return nil, storageError("failed to list running imports", err)
	}
	return logs, nil
}

// GetImportStats aggregates batches started in the trailing window of days.
// An empty connectionID covers every connection.
func (s *ImportLogService) GetImportStats(ctx context.Context, connectionID string, days int) (*dtos.ImportStats, error) {
	if days <= 0 {
		days = constants.DefaultStatsWindowDays
	}
	since := s.now().AddDate(0, 0, -days)

	rows, err := s.stats.HeadersSince(ctx, connectionID, since)
	if err != nil {
		return nil, storageError("failed to load import stats", err)
	}
	skipped, err := s.stats.SkippedSince(ctx, connectionID, since)
	if err != nil {
		return nil, storageError("failed to load import stats", err)
	}

	stats := &dtos.ImportStats{WindowDays: days, SkippedRecords: skipped}
	var durationTotal float64
	var durationCount int

	for _, row := range rows {
		stats.TotalImports++
		switch constants.ImportStatus(row.Status) {
		case constants.ImportStatusCompleted:
			stats.CompletedImports++
			if row.CompletedAt != nil {
				durationTotal += row.CompletedAt.Sub(row.StartedAt).Minutes()
				durationCount++
			}
		case constants.ImportStatusFailed:
			stats.FailedImports++
		case constants.ImportStatusRunning:
			stats.RunningImports++
		case constants.ImportStatusCancelled:
			stats.CancelledImports++
		}
		stats.TotalRecords += row.TotalRecords
		stats.ProcessedRecords += row.ProcessedRecords
		stats.SuccessfulRecords += row.SuccessfulRecords
		stats.FailedRecords += row.FailedRecords
	}

	if durationCount > 0 {
		stats.AvgDurationMinutes = round2(durationTotal / float64(durationCount))
	}
	stats.SuccessRate = percentage(stats.CompletedImports, stats.TotalImports)
	stats.RecordSuccessRate = percentage(stats.SuccessfulRecords, stats.ProcessedRecords)
	return stats, nil
}

// CleanupOldLogs purges terminal batches older than retentionDays together
// with their details. Running batches are kept regardless of age.
func (s *ImportLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (logsDeleted, detailsDeleted int64, err error) {
	if retentionDays <= 0 {
		retentionDays = constants.DefaultImportRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	logsDeleted, detailsDeleted, err = s.repo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, 0, storageError("failed to clean up import logs", err)
	}

	s.metrics.ImportLogsPurged(logsDeleted)
	logging.Info("Import log cleanup finished",
		"retention_days", retentionDays,
		"cutoff", cutoff.Format(time.RFC3339),
		"logs_deleted", logsDeleted,
		"details_deleted", detailsDeleted,
	)
	return logsDeleted, detailsDeleted, nil
}

func importNotRunning(log *gormModels.ImportLog) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeImportNotRunning,
		Message: fmt.Sprintf("import %s is %s", log.ID, log.Status),
	}
}

func joinField(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
