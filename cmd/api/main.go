package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	httpAdapter "github.com/lorrc/vendor-performance/internal/adapters/primary/http"
	mw "github.com/lorrc/vendor-performance/internal/adapters/primary/http/middleware"
	"github.com/lorrc/vendor-performance/internal/adapters/primary/websocket"
	"github.com/lorrc/vendor-performance/internal/adapters/secondary/postgres"
	"github.com/lorrc/vendor-performance/internal/adapters/secondary/redis"
	"github.com/lorrc/vendor-performance/internal/adapters/secondary/supportapi"
	"github.com/lorrc/vendor-performance/internal/adapters/secondary/taxonomy"
	"github.com/lorrc/vendor-performance/internal/auth"
	"github.com/lorrc/vendor-performance/internal/config"
	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/core/services"
	"github.com/lorrc/vendor-performance/internal/infrastructure/logging"
	"github.com/lorrc/vendor-performance/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger and Metrics
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	metrics.Init()

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Initialize Database Pool
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied", "path", cfg.Database.MigrationsPath)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 4. Identity cache tier
	var identityStore ports.IdentityRepository
	switch cfg.Identity.CacheBackend {
	case "redis":
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func(rdb *goredis.Client) {
			_ = rdb.Close()
		}(rdb)
		identityStore = redis.NewIdentityRepository(rdb, cfg.Redis.Retention)
		healthHandler.WithCheck("redis", httpAdapter.HealthCheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		logger.Info("identity cache backed by redis", "addr", cfg.Redis.Addr)
	default:
		identityStore = postgres.NewIdentityRepository(pool)
	}

	// 5. Secondary adapters
	adminClient := supportapi.NewAdminClient(supportapi.Config{
		BaseURL:           cfg.SupportAPI.BaseURL,
		Token:             cfg.SupportAPI.Token,
		Timeout:           cfg.SupportAPI.Timeout,
		RequestsPerMinute: cfg.SupportAPI.RequestsPerMinute,
		Retry: supportapi.RetryConfig{
			MaxRetries:   cfg.SupportAPI.MaxRetries,
			InitialDelay: cfg.SupportAPI.RetryBaseDelay,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
		},
	}, logger)

	rules := taxonomy.DefaultRules()
	if cfg.Analysis.TaxonomyRulesFile != "" {
		rules, err = taxonomy.LoadRules(cfg.Analysis.TaxonomyRulesFile)
		if err != nil {
			logger.Error("failed to load taxonomy rules", "error", err)
			os.Exit(1)
		}
	}
	classifier := taxonomy.NewKeywordClassifier(rules)

	snapshotRepo := postgres.NewSnapshotRepository(pool)

	// 6. Real-time hub
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 7. Services (Core)
	detector := services.NewCompositeEscalationDetector(
		services.NewTextEscalationDetector(cfg.Analysis.EscalationMarkers),
	)
	resolver := services.NewIdentityResolver(
		adminClient,
		identityStore,
		domain.NewVendorClassifier(cfg.Identity.VendorDomains),
		services.IdentityResolverConfig{
			TTL:         cfg.Identity.TTL,
			Concurrency: cfg.Identity.Concurrency,
		},
		logger,
	)
	snapshotService := services.NewSnapshotService(snapshotRepo, hub, logger)
	analysisService := services.NewAnalysisService(services.AnalysisDeps{
		Resolver: resolver,
		Taxonomy: classifier,
		Aggregator: services.NewMetricsAggregator(detector, services.MetricsAggregatorConfig{
			CategoryMinVolume:    cfg.Analysis.CategoryMinVolume,
			SubcategoryMinVolume: cfg.Analysis.SubcategoryMinVolume,
		}),
		Classifier:  services.NewPerformanceClassifier(detector),
		Builder:     services.NewVendorReportBuilder(),
		Snapshots:   snapshotService,
		Broadcaster: hub,
	}, logger)
	authService := services.NewAuthService(cfg.Auth.APIKeyHashes)

	// 8. Security and rate limiting
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var (
		generalRateLimiter, authRateLimiter *mw.RateLimiter
		clientRateLimiter                   *mw.RateLimitByKey
	)
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})

		clientRateLimiter = mw.NewRateLimitByKey(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	}

	// 9. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:         logger,
		TokenManager:   tokenManager,
		Auth:           httpAdapter.NewAuthHandler(authService, tokenManager, cfg.JWT.AccessTokenTTL, errorHandler, logger),
		Reports:        httpAdapter.NewReportHandler(analysisService, snapshotService, errorHandler, logger),
		Identity:       httpAdapter.NewIdentityHandler(resolver, errorHandler, logger),
		Health:         healthHandler,
		WebSocket:      httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger),
		Metrics:        metrics.Handler(),
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		ClientLimiter:  clientRateLimiter,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	})

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	stop()

	logger.Info("server shutdown complete")
}
