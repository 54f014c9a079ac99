package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/entities"
)

// ImportStatsRepo is the raw SQL read model behind import statistics
type ImportStatsRepo struct {
	db *sqlx.DB
}

func NewImportStatsRepo(db *sqlx.DB) *ImportStatsRepo {
	return &ImportStatsRepo{db: db}
}

// HeadersSince returns the batch headers started at or after since. An empty
// connectionID covers every connection.
func (r *ImportStatsRepo) HeadersSince(ctx context.Context, connectionID string, since time.Time) ([]entities.ImportStatsRow, error) {
	query := `
		SELECT status, started_at, completed_at,
		       total_records, processed_records, successful_records, failed_records
		FROM import_logs
		WHERE started_at >= ?`
	args := []interface{}{since}
	if connectionID != "" {
		query += " AND connection_id = ?"
		args = append(args, connectionID)
	}
	query += " ORDER BY started_at ASC"

	var rows []entities.ImportStatsRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load import stats rows: %w", err)
	}
	return rows, nil
}

// SkippedSince counts skip details inside batches started at or after since
func (r *ImportStatsRepo) SkippedSince(ctx context.Context, connectionID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM import_details d
		JOIN import_logs l ON l.id = d.import_log_id
		WHERE d.action = ? AND l.started_at >= ?`
	args := []interface{}{string(constants.DetailActionSkip), since}
	if connectionID != "" {
		query += " AND l.connection_id = ?"
		args = append(args, connectionID)
	}

	var skipped int
	if err := r.db.GetContext(ctx, &skipped, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count skipped import details: %w", err)
	}
	return skipped, nil
}
