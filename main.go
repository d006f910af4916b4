package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/assembler"
	"github.com/chartops/chart-engine/pkg/cache"
	"github.com/chartops/chart-engine/pkg/config"
	"github.com/chartops/chart-engine/pkg/connectors"
	_ "github.com/chartops/chart-engine/pkg/connectors/mongodb"
	_ "github.com/chartops/chart-engine/pkg/connectors/rest"
	_ "github.com/chartops/chart-engine/pkg/connectors/saas"
	_ "github.com/chartops/chart-engine/pkg/connectors/sqldb"
	"github.com/chartops/chart-engine/pkg/crypto"
	"github.com/chartops/chart-engine/pkg/database"
	"github.com/chartops/chart-engine/pkg/engine"
	"github.com/chartops/chart-engine/pkg/handlers"
	"github.com/chartops/chart-engine/pkg/logging"
	"github.com/chartops/chart-engine/pkg/middleware"
	"github.com/chartops/chart-engine/pkg/repositories"
	"github.com/chartops/chart-engine/pkg/retry"
	"github.com/chartops/chart-engine/pkg/scheduler"
	"github.com/chartops/chart-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Database),
		zap.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
		zap.Bool("redis_configured", cfg.Redis.Host != ""))

	if cfg.ConnectionCredentialsKey == "" {
		logger.Fatal("CONNECTION_CREDENTIALS_KEY is not set")
	}

	ctx := context.Background()

	// Migrations run over database/sql; the pool the repositories use is pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("failed to open migration connection", zap.Error(err))
	}
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger)
	})
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// The database may still be coming up when we are; retry the initial
	// connection with backoff instead of crash-looping.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}

	encryptor, err := crypto.NewCredentialEncryptor(cfg.ConnectionCredentialsKey)
	if err != nil {
		logger.Fatal("failed to create credential encryptor", zap.Error(err))
	}

	// Repositories
	connectionRepo := repositories.NewConnectionRepository(db)
	datasetRepo := repositories.NewDatasetRepository(db)
	dataRequestRepo := repositories.NewDataRequestRepository(db)
	chartRepo := repositories.NewChartRepository(db)
	dashboardRepo := repositories.NewDashboardRepository(db)
	cacheRecordRepo := repositories.NewCacheRecordRepository(db)
	handoffRepo := repositories.NewHandoffRepository(db)

	// Caches
	store, err := cache.NewStore(cacheRecordRepo, cfg.Cache.Dir, logger)
	if err != nil {
		logger.Fatal("failed to create result cache", zap.Error(err))
	}
	handoff := cache.NewHandoffCache(redisClient, handoffRepo)

	// Pipeline
	factory := connectors.NewConnectorFactory(logger)
	connectionService := services.NewConnectionService(connectionRepo, encryptor, logger)
	executionEngine := engine.NewEngine(factory, dataRequestRepo, logger)
	chartAssembler := assembler.New(
		chartRepo,
		dataRequestRepo,
		connectionService,
		executionEngine,
		store,
		handoff,
		services.NewChartPlotter(),
		services.NewAlertService(logger),
		logger,
	)

	// Scheduler
	var queue *scheduler.Queue
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		queue = scheduler.NewQueue(cfg.Scheduler.MaxConcurrentJobs, logger)
		sched = scheduler.New(chartRepo, dashboardRepo, chartAssembler, queue, scheduler.Config{
			Tick:           time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
			StuckThreshold: time.Duration(cfg.Scheduler.StuckJobMinutes) * time.Minute,
		}, logger)
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	mux := http.NewServeMux()
	healthHandler := handlers.NewHealthHandler(cfg, queue, logger)
	healthHandler.RegisterRoutes(mux)
	chartDataHandler := handlers.NewChartDataHandler(chartRepo, handoff, logger)
	chartDataHandler.RegisterRoutes(mux)
	datasetHandler := handlers.NewDatasetHandler(datasetRepo, logger)
	datasetHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		logger.Info("starting chart-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler shutdown incomplete", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
