package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/GrantWise/factory-board-sub001/internal/api"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/middleware"
)

// RouterOptions carries the pieces the router needs beyond the service graph
type RouterOptions struct {
	UpSince        time.Time
	SQLDB          *sqlx.DB
	CachePinger    api.Pinger
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

func RegisterRoutes(deps *api.Dependencies, opts RouterOptions) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// health check stays outside the rate limit so probes are never throttled
	r.Get("/healthCheck", api.HealthCheckHandler(opts.SQLDB, opts.CachePinger, opts.UpSince))

	handlers := api.NewHandlers(deps)
	r.Group(func(limited chi.Router) {
		if opts.RateLimitRPS > 0 {
			limited.Use(middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware)
		}
		RegisterAPIRoutes(limited, handlers)
	})

	logging.Info("Router initialized with metrics and rate limit middleware",
		"rate_limit_rps", opts.RateLimitRPS,
		"rate_limit_burst", opts.RateLimitBurst,
	)
	return r
}
