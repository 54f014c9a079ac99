package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GrantWise/factory-board-sub001/internal/db"
	"github.com/GrantWise/factory-board-sub001/internal/models/entities"
)

// Pinger is a dependency the health check can probe, such as the redis cache
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthPingTimeout = 2 * time.Second

// HealthCheckHandler handles GET /healthCheck. cache may be nil when the
// in-memory backend is used.
func HealthCheckHandler(sqlDB *sqlx.DB, cache Pinger, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)

		services["postgres"] = probe(func() error { return db.Ping(ctx, sqlDB) }, "Postgres Connected")
		if cache != nil {
			services["redis"] = probe(func() error { return cache.Ping(ctx) }, "Redis Connected")
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		resp := entities.HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			UpSince:  upSince.UTC(),
			Uptime:   time.Since(upSince).Round(time.Second).String(),
		}

		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func probe(ping func() error, okDetails string) entities.ServiceStatus {
	if err := ping(); err != nil {
		return entities.ServiceStatus{Status: "down", Details: err.Error()}
	}
	return entities.ServiceStatus{Status: "ok", Details: okDetails}
}
