package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GrantWise/factory-board-sub001/internal/logging"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// GormConfig is shared by the postgres handle and the sqlite handles used in tests.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewGormLogger sends gorm warnings, slow queries and errors through the zap
// logger. Lookups that miss are expected, so record-not-found stays quiet.
func NewGormLogger() logger.Interface {
	return logger.New(gormLogWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...interface{}) {
	logging.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func InitPostgresORM(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logging.Info("Connected to Postgres via GORM")
	return db, nil
}

// Models lists every table owned by the ERP sync core, parents first
func Models() []interface{} {
	return []interface{}{
		&gormModels.ERPConnection{},
		&gormModels.SyncState{},
		&gormModels.OrderLink{},
		&gormModels.ConflictResolution{},
		&gormModels.ImportLog{},
		&gormModels.ImportDetail{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate erp sync tables: %w", err)
	}
	return nil
}

// NewSQLX wraps the pool behind a gorm handle so both query styles share connections
func NewSQLX(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}

	driverName := db.Dialector.Name()
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}
	return sqlx.NewDb(sqlDB, driverName), nil
}
