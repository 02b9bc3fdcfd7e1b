package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restyle-platform/restyle/internal/database"
	mw "github.com/restyle-platform/restyle/internal/middleware"
	inats "github.com/restyle-platform/restyle/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Generation
	Generate http.HandlerFunc

	// Payments
	ConfirmPayment http.HandlerFunc

	// Account
	GetProfile http.HandlerFunc
	GetUsage   http.HandlerFunc
	GetPlan    http.HandlerFunc
	ListAudit  http.HandlerFunc

	// Ops
	ListReconciliation http.HandlerFunc

	// Middleware
	IdentityMiddleware func(http.Handler) http.Handler
	OpsMiddleware      func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins    []string
	GenerationRateLimiter func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.OriginGuard(cfg.CORSAllowedOrigins))
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, always 200 with no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1: every route below requires a verified identity
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.IdentityMiddleware)

			r.Group(func(r chi.Router) {
				if cfg.GenerationRateLimiter != nil {
					r.Use(cfg.GenerationRateLimiter)
				}
				r.Post("/generations", h.Generate)
			})

			r.Post("/payments/confirm", h.ConfirmPayment)

			r.Route("/account", func(r chi.Router) {
				r.Get("/profile", h.GetProfile)
				r.Get("/usage", h.GetUsage)
				r.Get("/plan", h.GetPlan)
				r.Get("/audit", h.ListAudit)
			})
		})
	})

	// Operator surface, guarded by a service token
	r.Route("/ops", func(r chi.Router) {
		r.Use(h.OpsMiddleware)
		r.Get("/reconciliation", h.ListReconciliation)
	})

	return r
}
