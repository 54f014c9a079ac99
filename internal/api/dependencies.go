package api

import (
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/services"
)

type Repositories struct {
	Connections *repositories.ERPConnectionRepo
	SyncStates  *repositories.SyncStateRepo
	OrderLinks  *repositories.OrderLinkRepo
	ImportLogs  *repositories.ImportLogRepo
	ImportStats *repositories.ImportStatsRepo
	Orders      *repositories.ManufacturingOrderRepo
}

type Services struct {
	Cache       common.CacheInterface
	Connections *services.ConnectionService
	SyncStates  *services.SyncStateService
	OrderLinks  *services.OrderLinkService
	Imports     *services.ImportLogService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
}

// InitDependencies wires repositories and services over the shared handles.
// gdb serves the entity tables; sqlDB serves the sqlx read models.
func InitDependencies(
	gdb *gorm.DB,
	sqlDB *sqlx.DB,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
	maxFailures int,
) *Dependencies {
	repos := &Repositories{
		Connections: repositories.NewERPConnectionRepo(gdb),
		SyncStates:  repositories.NewSyncStateRepo(gdb),
		OrderLinks:  repositories.NewOrderLinkRepo(gdb),
		ImportLogs:  repositories.NewImportLogRepo(gdb),
		ImportStats: repositories.NewImportStatsRepo(sqlDB),
		Orders:      repositories.NewManufacturingOrderRepo(sqlDB),
	}

	svcs := &Services{
		Cache:       cache,
		Connections: services.NewConnectionService(repos.Connections, cache, metricsReg),
		SyncStates:  services.NewSyncStateService(repos.SyncStates, repos.Connections, metricsReg, maxFailures),
		OrderLinks:  services.NewOrderLinkService(repos.OrderLinks, repos.Connections, repos.Orders, metricsReg),
		Imports:     services.NewImportLogService(repos.ImportLogs, repos.ImportStats, repos.Connections, metricsReg),
	}

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
		Metrics:  metricsReg,
	}
}
