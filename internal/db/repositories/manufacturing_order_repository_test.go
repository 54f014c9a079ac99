package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSQLX(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestManufacturingOrderRepo_GetByID(t *testing.T) {
	db, mock := newMockSQLX(t)
	repo := NewManufacturingOrderRepo(db)

	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "order_number", "status", "quantity", "due_date", "updated_at"}).
		AddRow(int64(42), "MO-0042", "released", 250, due, updated)

	mock.ExpectQuery(`SELECT id, order_number, status, quantity, due_date, updated_at\s+FROM manufacturing_orders\s+WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	order, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "MO-0042", order.OrderNumber)
	assert.Equal(t, 250, order.Quantity)
	require.NotNil(t, order.DueDate)
	assert.True(t, order.DueDate.Equal(due))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManufacturingOrderRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMockSQLX(t)
	repo := NewManufacturingOrderRepo(db)

	mock.ExpectQuery(`FROM manufacturing_orders`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "status", "quantity", "due_date", "updated_at"}))

	order, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, order)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManufacturingOrderRepo_Exists(t *testing.T) {
	db, mock := newMockSQLX(t)
	repo := NewManufacturingOrderRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM manufacturing_orders WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM manufacturing_orders WHERE id = \$1`).
		WithArgs(int64(43)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := repo.Exists(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), 43)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManufacturingOrderRepo_ExistsWrapsErrors(t *testing.T) {
	db, mock := newMockSQLX(t)
	repo := NewManufacturingOrderRepo(db)

	boom := errors.New("connection reset")
	mock.ExpectQuery(`FROM manufacturing_orders`).WillReturnError(boom)

	_, err := repo.Exists(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to check manufacturing order")
}

func TestImportStatsRepo_SkippedSinceFiltersConnection(t *testing.T) {
	db, mock := newMockSQLX(t)
	repo := NewImportStatsRepo(db)

	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM import_details d\s+JOIN import_logs l ON l.id = d.import_log_id\s+WHERE d.action = \$1 AND l.started_at >= \$2 AND l.connection_id = \$3`).
		WithArgs("skip", since, "conn-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	skipped, err := repo.SkippedSince(context.Background(), "conn-1", since)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportStatsRepo_HeadersSinceAllConnections(t *testing.T) {
	db, mock := newMockSQLX(t)
	repo := NewImportStatsRepo(db)

	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	started := since.Add(time.Hour)
	completed := started.Add(10 * time.Minute)

	mock.ExpectQuery(`FROM import_logs\s+WHERE started_at >= \$1 ORDER BY started_at ASC`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{
			"status", "started_at", "completed_at",
			"total_records", "processed_records", "successful_records", "failed_records",
		}).
			AddRow("completed", started, completed, 10, 10, 9, 1).
			AddRow("running", started, nil, 5, 2, 2, 0))

	rows, err := repo.HeadersSince(context.Background(), "", since)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "completed", rows[0].Status)
	require.NotNil(t, rows[0].CompletedAt)
	assert.Nil(t, rows[1].CompletedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}
