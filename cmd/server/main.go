// Package main provides the API server entry point for the kosha
// personal finance backend.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kosha-finance/internal/api"
	"github.com/kosha-finance/internal/config"
	"github.com/kosha-finance/internal/importer"
	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/service"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize repositories
	assetRepo := storage.NewAssetRepository(postgres)
	assetTxRepo := storage.NewAssetTransactionRepository(postgres)
	priceRepo := storage.NewPriceRepository(postgres)
	billRepo := storage.NewBillRepository(postgres)
	notificationRepo := storage.NewNotificationRepository(postgres)
	preferencesRepo := storage.NewPreferencesRepository(postgres)
	incomeRepo := storage.NewIncomeRepository(clickhouse)
	expenseRepo := storage.NewExpenseRepository(clickhouse)

	cacheService := storage.NewCacheService(redis, cfg.Cache.SummaryTTL)

	// Initialize services
	logger.Info("Initializing services...")

	// Without a statements directory the import endpoints report
	// DEPENDENCY_FAILURE; a nil importer is a valid configuration.
	var billImporter service.BillImporter
	var incomeImporter, expenseImporter service.LedgerImporter
	if dir := cfg.Import.StatementsDir; dir != "" {
		billImporter = importer.NewBillCSV(dir, billRepo)
		incomeImporter = importer.NewIncomeCSV(dir, incomeRepo)
		expenseImporter = importer.NewExpenseCSV(dir, expenseRepo)
		logger.WithField("dir", dir).Info("Statement importers enabled")
	}

	investmentService := service.NewInvestmentService(assetRepo, assetTxRepo, priceRepo)
	billService := service.NewBillService(billRepo, billImporter)
	incomeService := service.NewIncomeService(incomeRepo, incomeImporter)
	expenseService := service.NewExpenseService(expenseRepo, expenseImporter)

	sender := service.NewGuardedSender(service.LogSender{})
	notificationService := service.NewNotificationService(notificationRepo, preferencesRepo, sender)

	dashboardService := service.NewDashboardService(
		incomeService,
		expenseService,
		billService,
		investmentService,
		cacheService,
		cfg.Cache.FanoutTimeout,
	)

	logger.Info("Services initialized")

	// Start background workers
	dispatcher, err := worker.NewDispatcher(&worker.DispatcherConfig{
		Notifications: notificationService,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create notification dispatcher")
	}
	sweeper, err := worker.NewOverdueSweeper(billRepo, 0)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create overdue sweeper")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if err := dispatcher.Start(workerCtx); err != nil {
		logger.WithError(err).Fatal("Failed to start notification dispatcher")
	}
	if err := sweeper.Start(workerCtx); err != nil {
		logger.WithError(err).Fatal("Failed to start overdue sweeper")
	}

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		JWTSecret:         cfg.Auth.JWTSecret,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(
		serverConfig,
		dashboardService,
		investmentService,
		billService,
		incomeService,
		expenseService,
		notificationService,
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := dispatcher.Stop(ctx); err != nil {
		logger.WithError(err).Warn("Notification dispatcher did not stop cleanly")
	}
	if err := sweeper.Stop(ctx); err != nil {
		logger.WithError(err).Warn("Overdue sweeper did not stop cleanly")
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
