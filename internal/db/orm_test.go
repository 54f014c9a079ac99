package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/logging"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(gdb))
	return gdb
}

func TestGormLogger_MissedLookupIsQuiet(t *testing.T) {
	gdb := openTestDB(t)

	core, logs := observer.New(zapcore.DebugLevel)
	logging.UseLogger(zap.New(core))
	t.Cleanup(func() { logging.UseLogger(zap.NewNop()) })

	var conn gormModels.ERPConnection
	err := gdb.Where("name = ?", "does-not-exist").First(&conn).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Zero(t, logs.Len(), "record not found is an expected miss")
}

func TestGormLogger_QueryErrorsGoToZap(t *testing.T) {
	gdb := openTestDB(t)

	core, logs := observer.New(zapcore.DebugLevel)
	logging.UseLogger(zap.New(core))
	t.Cleanup(func() { logging.UseLogger(zap.NewNop()) })

	err := gdb.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)

	entries := logs.FilterMessage("gorm").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["detail"], "no_such_table")
}

func TestNewSQLXMapsSqliteDriver(t *testing.T) {
	gdb := openTestDB(t)

	sqlxDB, err := NewSQLX(gdb)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", sqlxDB.DriverName())
}
