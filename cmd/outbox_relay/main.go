package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/bank-transfer-engine/internal/data/postgres"
	"github.com/bank-transfer-engine/internal/fraud"
	"github.com/bank-transfer-engine/internal/logger"
	"github.com/bank-transfer-engine/internal/outboxrelay"
	"github.com/bank-transfer-engine/internal/platform/messaging/consumers"
	"github.com/bank-transfer-engine/internal/platform/messaging/producers"
	"github.com/bank-transfer-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("outbox_relay")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(&cfg.Logging)

	log.Info("Starting Outbox Relay",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize Kafka producer for committed-transfer events
	eventsProducer, err := producers.NewTransferEventsProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer for fraud alerts
	fraudConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.FraudAlertsTopic, cfg.Kafka.ConsumerGroup)
	alertHandler := fraud.NewAlertHandler(accountRepo, log)

	// Initialize outbox relay
	relay := outboxrelay.NewRelay(&cfg.Outbox, postgresDB, outboxRepo, eventsProducer, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start outbox relay in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Start(appCtx)
	}()

	// Start fraud alert consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting fraud alert consumer",
			"topic", cfg.Kafka.FraudAlertsTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := fraudConsumer.Subscribe(appCtx, alertHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("fraud alert consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka consumer
	if err = fraudConsumer.Close(); err != nil {
		log.Error("Error closing fraud alert consumer", "error", err)
	}

	// Close Kafka producer
	if err = eventsProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serviceErr != nil {
		log.Error("Outbox Relay shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Outbox Relay shutdown completed with errors")
	} else {
		log.Info("Outbox Relay shutdown completed successfully")
	}
}
