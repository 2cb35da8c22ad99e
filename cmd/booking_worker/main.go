package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kerya-reservation-engine/internal/booking_worker/consumer"
	"github.com/kerya-reservation-engine/internal/booking_worker/outbox_poller"
	"github.com/kerya-reservation-engine/internal/booking_worker/scheduler"
	"github.com/kerya-reservation-engine/internal/config"
	mongodata "github.com/kerya-reservation-engine/internal/data/mongo"
	"github.com/kerya-reservation-engine/internal/data/postgres"
	redisdata "github.com/kerya-reservation-engine/internal/data/redis"
	"github.com/kerya-reservation-engine/internal/logger"
	"github.com/kerya-reservation-engine/internal/platform/messaging/consumers"
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
	cfg, err := config.LoadConfig("booking_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Booking Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// The worker shares the reservation store with the API, so it needs a real database
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Error("Booking worker requires STORAGE_DRIVER=postgres", "storage_driver", cfg.Storage.Driver)
		os.Exit(1)
	}

	rules, err := policy.FromConfig(cfg)
	if err != nil {
		log.Error("Failed to build booking policy", "error", err)
		os.Exit(1)
	}

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

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

	// Initialize repositories
	reservationStore := postgres.NewStore(log, postgresDB)
	propertyRepo := mongodata.NewPropertyRepository(log, mongoDB.Database())
	eventArchive := mongodata.NewBookingEventArchive(log, mongoDB.Database())
	if err := propertyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure property indexes", "error", err)
		os.Exit(1)
	}
	if err := eventArchive.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure booking event indexes", "error", err)
		os.Exit(1)
	}
	catalog := redisdata.NewCachedCatalog(log, propertyRepo, redisDB.Client(), cfg.Redis.PropertyCacheTTL)

	// Initialize services
	engine := reservation.NewEngine(log, reservationStore, catalog, rules, cfg.Booking.TxTimeout)
	points := reservation.NewPoints(log, reservationStore, rules.Points, cfg.Booking.TxTimeout)

	// Initialize Kafka producers
	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// Handlers treat a nil DLQ as "retry forever"; avoid passing a typed nil
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	// Initialize Kafka consumers and their handlers
	paymentConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.PaymentTopic)
	activityConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.ActivityTopic)
	paymentHandler := consumer.NewPaymentEventHandler(log, engine, deadLetters)
	activityHandler := consumer.NewActivityEventHandler(log, points, catalog, deadLetters)

	// Initialize outbox poller
	eventPublisher := outbox_poller.NewEventPublisher(reservationStore.Outbox(), eventProducer, eventArchive, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, reservationStore.Outbox(), eventPublisher, log)

	// Initialize completion scheduler
	completion, err := scheduler.NewCompletionScheduler(engine, &cfg.Scheduler, &cfg.WorkerPool, log)
	if err != nil {
		log.Error("Failed to initialize completion scheduler", "error", err)
		os.Exit(1)
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Start Kafka consumers; each runs its own fetch loop until appCtx is cancelled
	for _, c := range []struct {
		consumer consumers.Consumer
		handler  consumers.MessageHandler
	}{
		{paymentConsumer, paymentHandler.HandleMessage},
		{activityConsumer, activityHandler.HandleMessage},
	} {
		log.Info("Starting Kafka consumer", "topic", c.consumer.Topic(), "group", cfg.Kafka.ConsumerGroup)
		if err := c.consumer.Subscribe(appCtx, c.handler); err != nil {
			errChan <- fmt.Errorf("kafka consumer error on %s: %w", c.consumer.Topic(), err)
		}
	}

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start completion scheduler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		completion.Start(appCtx)
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
	log.Info("Waiting for services to stop...")
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

	completion.Shutdown()

	if err = paymentConsumer.Close(); err != nil {
		log.Error("Error closing payment consumer", "error", err)
	}
	if err = activityConsumer.Close(); err != nil {
		log.Error("Error closing activity consumer", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka event producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Booking Worker shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Booking Worker shutdown completed successfully")
	}
}
