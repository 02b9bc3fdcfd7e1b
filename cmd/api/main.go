package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/restyle-platform/restyle/internal/account"
	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/audit"
	"github.com/restyle-platform/restyle/internal/config"
	"github.com/restyle-platform/restyle/internal/database"
	"github.com/restyle-platform/restyle/internal/entitlement"
	"github.com/restyle-platform/restyle/internal/generation"
	"github.com/restyle-platform/restyle/internal/identity"
	mw "github.com/restyle-platform/restyle/internal/middleware"
	inats "github.com/restyle-platform/restyle/internal/nats"
	"github.com/restyle-platform/restyle/internal/ops"
	"github.com/restyle-platform/restyle/internal/payments"
	"github.com/restyle-platform/restyle/internal/profiles"
	iredis "github.com/restyle-platform/restyle/internal/redis"
	"github.com/restyle-platform/restyle/internal/server"
)

const migrationsPath = "migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), migrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional: without it the audit trail degrades to logs.
	var natsClient *inats.Client
	var auditor *audit.Publisher
	auditRepo := audit.NewPostgresRepository(pool)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Warn("connecting to nats, audit trail disabled", "error", err)
		} else {
			defer natsClient.Close()
			auditor = audit.NewPublisher(inats.NewPublisher(natsClient.JetStream()))

			persister := audit.NewPersister(inats.NewConsumerManager(natsClient.JetStream()), auditRepo)
			go func() {
				if err := persister.Run(ctx); err != nil && ctx.Err() == nil {
					slog.Error("audit persister stopped", "error", err)
				}
			}()
		}
	}

	// Gemini
	modelClient, err := generation.NewGeminiClient(ctx, cfg.AI)
	if err != nil {
		slog.Error("creating model client", "error", err)
		os.Exit(1)
	}

	// Profiles and entitlement
	profileRepo := profiles.NewRepository(pool)
	meter := entitlement.NewService(profileRepo, cfg.Billing.FreeGenerations)

	// Generation
	generationSvc := generation.NewService(modelClient, cfg.AI)
	generationHandler := generation.NewHandler(generationSvc, profileRepo, meter, auditor)

	// Payments
	gateway := payments.NewHTTPGateway(cfg.Gateway)
	paymentRepo := payments.NewRepository(pool)
	paymentSvc := payments.NewService(gateway, paymentRepo, profileRepo, auditor, cfg.Billing)
	paymentHandler := payments.NewHandler(paymentSvc)

	// Account
	accountHandler := account.NewHandler(profileRepo, meter, auditRepo)

	// Ops
	opsTokens := ops.NewTokenManager(cfg.Ops.TokenSecret)
	opsHandler := ops.NewHandler(paymentRepo)

	// Identity
	verifier := identity.NewHTTPVerifier(cfg.Identity)

	// Per-user rate limit on the generation endpoint
	generationLimiter := mw.NewRateLimiter(redisClient, "generation",
		func(r *http.Request) string {
			if ident := identity.FromContext(r.Context()); ident != nil {
				return ident.UID
			}
			return ""
		},
		cfg.RateLimit.GenerationPerMinute, 60)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins:    cfg.CORS.AllowedOrigins,
		GenerationRateLimiter: generationLimiter.Middleware,
	}, api.HandlerSet{
		Generate: generationHandler.Generate,

		ConfirmPayment: paymentHandler.Confirm,

		GetProfile: accountHandler.GetProfile,
		GetUsage:   accountHandler.GetUsage,
		GetPlan:    accountHandler.GetPlan,
		ListAudit:  accountHandler.ListAudit,

		ListReconciliation: opsHandler.ListReconciliation,

		IdentityMiddleware: identity.Middleware(verifier),
		OpsMiddleware:      ops.RequireServiceToken(opsTokens),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
