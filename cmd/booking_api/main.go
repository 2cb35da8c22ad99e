package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kerya-reservation-engine/internal/booking_api"
	"github.com/kerya-reservation-engine/internal/booking_worker/outbox_poller"
	"github.com/kerya-reservation-engine/internal/booking_worker/scheduler"
	"github.com/kerya-reservation-engine/internal/config"
	"github.com/kerya-reservation-engine/internal/data/memory"
	mongodata "github.com/kerya-reservation-engine/internal/data/mongo"
	"github.com/kerya-reservation-engine/internal/data/postgres"
	redisdata "github.com/kerya-reservation-engine/internal/data/redis"
	"github.com/kerya-reservation-engine/internal/domain/store"
	"github.com/kerya-reservation-engine/internal/logger"
	"github.com/kerya-reservation-engine/internal/platform/messaging/producers"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
	"github.com/kerya-reservation-engine/internal/policy"
	"github.com/kerya-reservation-engine/internal/reservation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("booking_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	rules, err := policy.FromConfig(cfg)
	if err != nil {
		log.Error("Failed to build booking policy", "error", err)
		os.Exit(1)
	}

	// Reservation store: PostgreSQL, or process-local memory for development
	var (
		reservationStore store.Store
		postgresDB       *persistence.PostgresDB
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Warn("Using in-memory reservation store; data is lost on restart")
		reservationStore = memory.NewStore()
	default:
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		reservationStore = postgres.NewStore(log, postgresDB)
	}

	// Property catalog: MongoDB read model behind the Redis cache
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	redisDB, err := persistence.NewRedis(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}
	propertyRepo := mongodata.NewPropertyRepository(log, mongoDB.Database())
	catalog := redisdata.NewCachedCatalog(log, propertyRepo, redisDB.Client(), cfg.Redis.PropertyCacheTTL)

	// Initialize services
	engine := reservation.NewEngine(log, reservationStore, catalog, rules, cfg.Booking.TxTimeout)
	points := reservation.NewPoints(log, reservationStore, rules.Points, cfg.Booking.TxTimeout)

	var wg sync.WaitGroup

	// The worker cannot see a process-local store, so relay and complete in-process
	var (
		eventProducer *producers.EventProducer
		completion    *scheduler.CompletionScheduler
	)
	if cfg.Storage.Driver == config.StorageDriverMemory {
		eventProducer, completion, err = startInProcessWorkers(appCtx, log, cfg, reservationStore, engine, &wg)
		if err != nil {
			log.Error("Failed to start in-process workers", "error", err)
			os.Exit(1)
		}
	}

	// Initialize REST server
	server := booking_api.NewServer(log, cfg, engine, points)
	log.Info("REST server initialized", "storage_driver", cfg.Storage.Driver)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

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

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain HTTP requests before the stores go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	cancelAppCtx()
	wg.Wait()

	if completion != nil {
		completion.Shutdown()
	}
	if eventProducer != nil {
		if err := eventProducer.Close(); err != nil {
			log.Error("Error closing Kafka event producer", "error", err)
		}
	}

	if postgresDB != nil {
		postgresDB.Close()
	}

	if err := redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

// startInProcessWorkers runs the outbox relay and the completion scheduler next to the
// HTTP server. Both stop when ctx is cancelled.
func startInProcessWorkers(
	ctx context.Context,
	log *slog.Logger,
	cfg *config.Config,
	reservationStore store.Store,
	engine *reservation.Engine,
	wg *sync.WaitGroup,
) (*producers.EventProducer, *scheduler.CompletionScheduler, error) {
	eventProducer, err := producers.NewEventProducer(ctx, log, &cfg.Kafka)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Kafka event producer: %w", err)
	}

	completion, err := scheduler.NewCompletionScheduler(engine, &cfg.Scheduler, &cfg.WorkerPool, log)
	if err != nil {
		_ = eventProducer.Close()
		return nil, nil, fmt.Errorf("failed to initialize completion scheduler: %w", err)
	}

	publisher := outbox_poller.NewEventPublisher(reservationStore.Outbox(), eventProducer, nil, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, reservationStore.Outbox(), publisher, log)

	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		completion.Start(ctx)
	}()

	return eventProducer, completion, nil
}
