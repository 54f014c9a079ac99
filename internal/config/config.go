package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

// Config holds the process configuration, read once at startup
type Config struct {
	AppEnv   string
	HTTPAddr string

	PGHost     string
	PGPort     string
	PGUser     string
	PGDB       string
	PGPassword string
	PGSSLMode  string

	AutoMigrate bool

	CacheBackend  string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	SyncMaxFailures       int
	SyncSweepInterval     time.Duration
	ImportRetentionDays   int
	ImportCleanupSchedule string

	APIRateLimitRPS   float64
	APIRateLimitBurst int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   stringFromEnv("APP_ENV", "development"),
		HTTPAddr: stringFromEnv("HTTP_ADDR", ":8080"),

		PGHost:     stringFromEnv("PG_HOST", "localhost"),
		PGPort:     stringFromEnv("PG_PORT", "5432"),
		PGUser:     os.Getenv("PG_USER"),
		PGDB:       os.Getenv("PG_DB"),
		PGPassword: os.Getenv("PG_PASSWORD"),
		PGSSLMode:  stringFromEnv("PG_SSLMODE", "disable"),

		AutoMigrate: boolFromEnv("DB_AUTO_MIGRATE", true),

		CacheBackend:  stringFromEnv("CACHE_BACKEND", "memory"),
		RedisHost:     stringFromEnv("REDIS_HOST", "localhost"),
		RedisPort:     stringFromEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SyncMaxFailures:       intFromEnv("SYNC_MAX_FAILURES", constants.DefaultMaxFailures),
		SyncSweepInterval:     durationFromEnv("SYNC_SWEEP_INTERVAL", 15*time.Minute),
		ImportRetentionDays:   intFromEnv("IMPORT_RETENTION_DAYS", 90),
		ImportCleanupSchedule: stringFromEnv("IMPORT_CLEANUP_SCHEDULE", "0 3 * * *"),

		APIRateLimitRPS:   floatFromEnv("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst: intFromEnv("API_RATE_LIMIT_BURST", 20),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SyncMaxFailures <= 0 {
		return fmt.Errorf("SYNC_MAX_FAILURES must be positive, got %d", c.SyncMaxFailures)
	}
	if c.ImportRetentionDays <= 0 {
		return fmt.Errorf("IMPORT_RETENTION_DAYS must be positive, got %d", c.ImportRetentionDays)
	}
	if c.SyncSweepInterval <= 0 {
		return fmt.Errorf("SYNC_SWEEP_INTERVAL must be positive, got %s", c.SyncSweepInterval)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend)
	}
	return nil
}

// PostgresDSN builds the DSN shared by the sqlx and gorm handles
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB, c.PGSSLMode)
}

// RedisAddr returns host:port for the redis cache backend
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func stringFromEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
