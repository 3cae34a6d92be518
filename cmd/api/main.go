package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/domain/usecase/link"
	"github.com/amirhossein-jamali/paylink/internal/domain/usecase/redemption"
	"github.com/amirhossein-jamali/paylink/internal/domain/usecase/transaction"

	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/middleware"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/routes"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/gateway"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/idgen"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/memstore"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/metrics"
	timeProvider "github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/time"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate essential configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create logger
	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(coreport.ParseLogLevel(cfg.Logger.Level))
	defer func() { _ = appLogger.Flush() }()

	tp := timeProvider.NewRealTimeProvider()
	ids := idgen.NewUUIDGenerator()

	// Metrics registry; the no-op recorder keeps the wiring identical when metrics are off
	registry := prometheus.NewRegistry()
	var recorder interface {
		coreport.Metrics
		middleware.HTTPMetricsRecorder
		middleware.RateLimitRecorder
		database.PoolStatsRecorder
	} = metrics.NewNoopMetrics()
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusMetrics(registry)
	}

	// Storage
	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, appLogger, tp, recorder)
	if err != nil {
		appLogger.Error("Failed to open storage", map[string]any{
			"driver": cfg.Database.Driver,
			"error":  err.Error(),
		})
		_ = appLogger.Flush()
		os.Exit(1)
	}
	defer closeStore()

	// Authorization gateway
	authGateway := gateway.NewCircuitBreakerGateway(
		gateway.NewSimulatedGateway(gateway.SimulatorConfig{
			MinLatency: time.Duration(cfg.Gateway.MinLatencyMs) * time.Millisecond,
			MaxLatency: time.Duration(cfg.Gateway.MaxLatencyMs) * time.Millisecond,
			OutageRate: cfg.Gateway.OutageRate,
		}, tp, appLogger),
		gateway.BreakerConfig{
			Enabled:             cfg.Gateway.Breaker.Enabled,
			MaxRequests:         cfg.Gateway.Breaker.MaxRequests,
			Interval:            time.Duration(cfg.Gateway.Breaker.IntervalSeconds) * time.Second,
			Timeout:             time.Duration(cfg.Gateway.Breaker.TimeoutSeconds) * time.Second,
			ConsecutiveFailures: cfg.Gateway.Breaker.ConsecutiveFailures,
			FailureRatio:        cfg.Gateway.Breaker.FailureRatio,
			MinRequests:         cfg.Gateway.Breaker.MinRequests,
		},
		appLogger,
	)

	// Initialize use cases
	linkUseCase := link.NewLinkUseCase(store.Links(), ids, tp, appLogger, cfg.Server.PublicBaseURL)
	coordinator := redemption.NewCoordinator(
		store.Links(),
		store.Transactions(),
		store.UnitOfWork(),
		authGateway,
		ids,
		tp,
		appLogger,
		recorder,
		redemptionConfig(cfg.Redemption),
	)
	transactionService := transaction.NewTransactionService(store.Links(), store.Transactions(), appLogger)

	// Stale attempt recovery
	sweeper := redemption.NewStaleSweeper(coordinator, cfg.Redemption.SweepInterval(), cfg.Redemption.SweepTimeout(), appLogger)
	sweeper.Start()

	// Initialize API handlers
	handlers := routes.Handlers{
		Link:        handler.NewLinkHandler(linkUseCase, tp, appLogger),
		Payment:     handler.NewPaymentHandler(linkUseCase, coordinator, appLogger),
		Transaction: handler.NewTransactionHandler(transactionService, appLogger),
		Health:      handler.NewHealthHandler(store, cfg.Database.QueryTimeout, appLogger),
	}

	opts := routes.Options{
		Auth: middleware.AuthConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			Issuer: cfg.Auth.Issuer,
		},
		RateMetrics: recorder,
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
		opts.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	// Initialize Gin router
	router := gin.New()
	routes.SetupMiddlewares(router, appLogger, recorder, cfg.Server.AllowedOrigins)
	routes.SetupRoutes(router, handlers, opts)

	// Create HTTP server with configurable timeout values
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr":    server.Addr,
			"env":     cfg.Environment,
			"storage": cfg.Database.Driver,
		})

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", map[string]any{"signal": sig.String()})
	case err := <-serverErr:
		appLogger.Error("Server failed", map[string]any{"error": err.Error()})
	}

	// Create a deadline to wait for
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// In-flight redemptions finish before the sweeper and storage go away
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{
			"error": err.Error(),
		})
	}
	sweeper.Stop()

	appLogger.Info("Server exited gracefully", nil)
}

// openStore connects the configured storage driver and returns it with its close function
func openStore(
	ctx context.Context,
	cfg *config.Config,
	appLogger coreport.Logger,
	tp coreport.TimeProvider,
	statsRecorder database.PoolStatsRecorder,
) (persistence.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		appLogger.Warn("Using in-memory storage; data is lost on restart", nil)
		return memstore.NewStore(), func() {}, nil
	}

	dbManager := database.NewManager(database.NewConfigFromApp(cfg), appLogger, tp, statsRecorder)
	if _, err := dbManager.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	closeFn := func() {
		if err := dbManager.Close(); err != nil {
			appLogger.Error("Failed to close database", map[string]any{"error": err.Error()})
		}
	}

	if cfg.Database.AutoMigrate {
		if err := dbManager.Migrate(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return dbManager.Store(), closeFn, nil
}

// redemptionConfig converts the configured millisecond and second values into protocol settings
func redemptionConfig(rc config.RedemptionConfig) redemption.Config {
	defaults := redemption.DefaultConfig()

	cfg := redemption.Config{
		GatewayTimeout: rc.GatewayTimeout(),
		StaleAfter:     rc.StaleAfter(),
		Retry: redemption.RetryConfig{
			MaxAttempts:     rc.FinalizeMaxAttempts,
			InitialInterval: time.Duration(rc.FinalizeRetryDelayMs) * time.Millisecond,
			MaxInterval:     time.Duration(rc.FinalizeMaxRetryDelayMs) * time.Millisecond,
			JitterFactor:    rc.FinalizeJitterFactor,
		},
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if cfg.Retry.InitialInterval <= 0 {
		cfg.Retry.InitialInterval = defaults.Retry.InitialInterval
	}
	if cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		cfg.Retry.MaxInterval = max(defaults.Retry.MaxInterval, cfg.Retry.InitialInterval)
	}
	return cfg
}

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missingConfigs []string

	// Environment should be set with a valid value
	if cfg.Environment == "" {
		missingConfigs = append(missingConfigs, "environment")
	} else if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	// Validate server configuration
	if cfg.Server.Port == 0 {
		missingConfigs = append(missingConfigs, "server.port")
	}
	if cfg.Server.ReadTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.readTimeout")
	}
	if cfg.Server.WriteTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.writeTimeout")
	}
	if cfg.Server.ShutdownTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.shutdownTimeout")
	}
	if cfg.Server.PublicBaseURL == "" {
		missingConfigs = append(missingConfigs, "server.publicBaseURL")
	}

	// Validate database configuration
	switch cfg.Database.Driver {
	case "memory":
	case "postgres":
		required := []struct {
			key    string
			value  string
			envVar string
		}{
			{"database.host", cfg.Database.Host, "PL_DB_HOST"},
			{"database.port", cfg.Database.Port, "PL_DB_PORT"},
			{"database.username", cfg.Database.Username, "PL_DB_USERNAME"},
			{"database.password", cfg.Database.Password, "PL_DB_PASSWORD"},
			{"database.database", cfg.Database.Database, "PL_DB_NAME"},
		}
		for _, r := range required {
			if r.value == "" {
				missingConfigs = append(missingConfigs, fmt.Sprintf("%s (or %s environment variable)", r.key, r.envVar))
			}
		}
		if cfg.Database.QueryTimeout == 0 {
			missingConfigs = append(missingConfigs, "database.queryTimeout")
		}
	default:
		return fmt.Errorf("invalid database.driver value: %q, must be postgres or memory", cfg.Database.Driver)
	}

	// Validate redemption configuration
	if cfg.Redemption.GatewayTimeoutMs <= 0 {
		missingConfigs = append(missingConfigs, "redemption.gatewayTimeoutMs")
	}
	if cfg.Redemption.StaleAfterSeconds <= 0 {
		missingConfigs = append(missingConfigs, "redemption.staleAfterSeconds")
	}
	if cfg.Redemption.SweepIntervalSeconds <= 0 {
		missingConfigs = append(missingConfigs, "redemption.sweepIntervalSeconds")
	}

	// Owner authentication
	if cfg.Auth.JWTSecret == "" {
		missingConfigs = append(missingConfigs, "auth.jwtSecret (or PL_AUTH_JWT_SECRET environment variable)")
	}

	// Logger configuration
	if cfg.Logger.Level == "" {
		missingConfigs = append(missingConfigs, "logger.level")
	}

	// Return error with list of missing configurations
	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configurations: %v", missingConfigs)
	}

	// A stale sweep must never race an attempt that can still legitimately finish
	if cfg.Redemption.StaleAfter() <= cfg.Redemption.GatewayTimeout() {
		return fmt.Errorf("redemption.staleAfterSeconds (%s) must exceed redemption.gatewayTimeoutMs (%s)",
			cfg.Redemption.StaleAfter(), cfg.Redemption.GatewayTimeout())
	}

	// If we're in production, do additional validation for sensitive settings
	if cfg.Environment == config.Production {
		var warnings []string

		sslMode := strings.ToLower(cfg.Database.SSLMode)
		if cfg.Database.Driver == "postgres" && sslMode != "require" && sslMode != "verify-ca" && sslMode != "verify-full" {
			warnings = append(warnings, "database.sslMode should be set to 'require', 'verify-ca', or 'verify-full' in production")
		}
		if cfg.Database.Driver == "memory" {
			warnings = append(warnings, "database.driver 'memory' loses all links and transactions on restart")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			warnings = append(warnings, "auth.jwtSecret should be at least 32 bytes in production")
		}
		if cfg.Server.ReadTimeout < 5*time.Second {
			warnings = append(warnings, "server.readTimeout is too low for production")
		}
		if cfg.Server.WriteTimeout <= cfg.Redemption.GatewayTimeout() {
			warnings = append(warnings, "server.writeTimeout should exceed redemption.gatewayTimeoutMs")
		}

		if len(warnings) > 0 {
			log.Printf("Warning: potential security issues in production configuration: %v", warnings)
		}
	}

	return nil
}
