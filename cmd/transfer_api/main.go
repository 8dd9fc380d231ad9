package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bank-transfer-engine/internal/api"
	"github.com/bank-transfer-engine/internal/config"
	"github.com/bank-transfer-engine/internal/data/postgres"
	"github.com/bank-transfer-engine/internal/interest"
	"github.com/bank-transfer-engine/internal/limit"
	"github.com/bank-transfer-engine/internal/lock"
	"github.com/bank-transfer-engine/internal/logger"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	platformredis "github.com/bank-transfer-engine/internal/platform/redis"
	"github.com/bank-transfer-engine/internal/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("transfer_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(&cfg.Logging)

	log.Info("Starting Transfer API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Redis for locks and daily limit counters
	redisClient, err := platformredis.NewClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transferRepo := postgres.NewTransferRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize lock manager and daily limit counter
	lockManager := lock.NewRedisManager(redisClient, log, &cfg.Redis)
	limitCounter := limit.NewRedisCounter(redisClient, log, cfg.Transfer.DailyLimit)

	// Initialize services
	transferService := service.NewTransferService(
		postgresDB,
		accountRepo,
		transferRepo,
		ledgerRepo,
		outboxRepo,
		lockManager,
		limitCounter,
		cfg.Transfer,
		log,
	)
	accountQueries := service.NewAccountQueryService(accountRepo, ledgerRepo, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, transferService, accountQueries)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Optionally start the interest accrual sweep
	var wg sync.WaitGroup
	var accruer *interest.Accruer
	if cfg.Interest.Enabled {
		accruer, err = interest.NewAccruer(&cfg.Interest, &cfg.Transfer, accountRepo, transferService, log)
		if err != nil {
			log.Error("Failed to initialize interest accrual", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			accruer.Start(appCtx)
		}()
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop the interest accrual worker pool
	if accruer != nil {
		wg.Wait()
		accruer.Shutdown()
	}

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close Redis client
	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
