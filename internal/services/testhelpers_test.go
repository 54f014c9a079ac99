package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/db"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// testClock is a settable clock shared by every service in a fixture
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fixture struct {
	db          *gorm.DB
	clock       *testClock
	cache       *common.CacheService
	connections *ConnectionService
	syncStates  *SyncStateService
	links       *OrderLinkService
	imports     *ImportLogService
}

// Setup test database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig())
	require.NoError(t, err, "open sqlite")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty :memory: database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb), "migrate")
	return gdb
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := setupTestDB(t)
	sqlxDB, err := db.NewSQLX(gdb)
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := common.NewCacheService(60, 120)
	metricsReg := metrics.NewMetricsRegistry(nil)

	connRepo := repositories.NewERPConnectionRepo(gdb)

	f := &fixture{
		db:          gdb,
		clock:       clock,
		cache:       cache,
		connections: NewConnectionService(connRepo, cache, metricsReg),
		syncStates:  NewSyncStateService(repositories.NewSyncStateRepo(gdb), connRepo, metricsReg, 0),
		links:       NewOrderLinkService(repositories.NewOrderLinkRepo(gdb), connRepo, nil, metricsReg),
		imports: NewImportLogService(
			repositories.NewImportLogRepo(gdb),
			repositories.NewImportStatsRepo(sqlxDB),
			connRepo,
			metricsReg,
		),
	}
	f.syncStates.Now = clock.Now
	f.links.Now = clock.Now
	f.imports.Now = clock.Now
	return f
}

const apiKeyConfig = `{
	"auth_type": "api_key",
	"auth_config": {"api_key": "sk-live-1234567890", "api_key_header": "X-API-Key"},
	"base_url": "https://erp.example.com/api",
	"endpoints": {"orders": "/orders"},
	"rate_limit_per_minute": 60,
	"retry_attempts": 3,
	"timeout_seconds": 30
}`

const basicSettings = `{"duplicate_handling": "update", "batch_size": 100, "auto_import": true}`

func (f *fixture) createConnection(t *testing.T, name string) *gormModels.ERPConnection {
	t.Helper()

	conn, err := f.connections.Create(context.Background(), dtos.CreateConnectionRequest{
		Name:             name,
		SystemType:       "generic_rest",
		ConnectionConfig: json.RawMessage(apiKeyConfig),
		ImportSettings:   json.RawMessage(basicSettings),
	})
	require.NoError(t, err)
	return conn
}

func (f *fixture) createLink(t *testing.T, connectionID, externalID string, orderID int64) *gormModels.OrderLink {
	t.Helper()

	link, err := f.links.Create(context.Background(), dtos.CreateOrderLinkRequest{
		OrderID:      orderID,
		ConnectionID: connectionID,
		ExternalID:   externalID,
	})
	require.NoError(t, err)
	return link
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
