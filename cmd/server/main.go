package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GrantWise/factory-board-sub001/internal/api"
	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/config"
	"github.com/GrantWise/factory-board-sub001/internal/db"
	"github.com/GrantWise/factory-board-sub001/internal/jobs"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/routes"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("ERP sync service starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	// Connect to DB with sqlx (read models and health ping)
	sqlDB, err := db.InitPostgres(cfg.PostgresDSN())
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err.Error())
	}
	defer sqlDB.Close()
	logging.Info("Connected to Postgres (sqlx)")

	// Connect to DB with GORM
	gdb, err := db.InitPostgresORM(cfg.PostgresDSN())
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err.Error())
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(gdb); err != nil {
			logging.Fatal("Failed to migrate schema", "error", err.Error())
		}
		logging.Info("ERP sync schema migrated")
	}

	// Cache backend: redis when configured, in-memory otherwise
	var (
		cache       common.CacheInterface
		cachePinger api.Pinger
	)
	switch cfg.CacheBackend {
	case "redis":
		redisCache, err := common.NewRedisCacheService(common.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword))
		if err != nil {
			logging.Fatal("Failed to connect to Redis", "addr", cfg.RedisAddr(), "error", err.Error())
		}
		cache, cachePinger = redisCache, redisCache
		logging.Info("Using Redis cache", "addr", cfg.RedisAddr())
	default:
		cache = common.NewCacheService(86400, 600)
		logging.Info("Using in-memory cache")
	}
	defer cache.Close()

	deps := api.InitDependencies(gdb, sqlDB, cache, metricsReg, cfg.SyncMaxFailures)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := jobs.InitializeJobs(ctx, jobs.Config{
		SweepInterval:         cfg.SyncSweepInterval,
		ImportRetentionDays:   cfg.ImportRetentionDays,
		ImportCleanupSchedule: cfg.ImportCleanupSchedule,
	}, deps.Services.SyncStates, deps.Services.Imports, metricsReg)
	if err != nil {
		logging.Fatal("Failed to start background jobs", "error", err.Error())
	}
	defer scheduler.Stop()

	upSince := time.Now()
	router := routes.RegisterRoutes(deps, routes.RouterOptions{
		UpSince:        upSince,
		SQLDB:          sqlDB,
		CachePinger:    cachePinger,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
	})

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", cfg.HTTPAddr, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown failed", "error", err.Error())
	}
}
