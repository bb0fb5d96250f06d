package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"roundup/internal/api"       // Custom package for API handlers
	"roundup/internal/config"    // Custom package for configuration
	"roundup/internal/db"        // Database connection and migrations
	"roundup/internal/events"    // Domain event publishers
	"roundup/internal/ratelimit" // Rate limiters
	"roundup/internal/scheduler" // Background jobs

	"github.com/getsentry/sentry-go" // Error reporting
	"github.com/gin-gonic/gin"       // Gin web framework
	"github.com/redis/go-redis/v9"   // Redis client
	"github.com/sirupsen/logrus"     // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode) // Set Mode to Release if in production
	}

	// Setup Sentry when a DSN is configured
	sentryEnabled := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:          cfg.SentryDSN,
			Environment:  cfg.AppEnv,
			IgnoreErrors: []string{"401"},
		}); err != nil {
			logrus.Errorf("sentry init error: %v", err)
		} else {
			sentryEnabled = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Connect to the database and migrate the schema
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Setup Redis client when configured; without it caching is off and limits are per process
	var redisClient *redis.Client
	var limiter ratelimit.Limiter = ratelimit.NewMemory(api.LimiterRules(cfg))
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		limiter = ratelimit.NewRedis(redisClient, "roundup:rate_limit", api.LimiterRules(cfg))
	}

	// Setup the event publisher
	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logrus.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		publisher = amqpPublisher
	}
	defer publisher.Close()

	// Start background jobs
	if cfg.SchedulerEnabled {
		jobs := scheduler.NewJobs(gdb, redisClient, publisher, nil)
		sched := scheduler.New(jobs, scheduler.Schedules{
			Recurring:    cfg.RecurringSchedule,
			MonthlyReset: cfg.MonthlyResetSchedule,
			Investment:   cfg.InvestmentSchedule,
		})
		if err := sched.Start(); err != nil {
			logrus.Fatalf("invalid job schedule: %v", err)
		}
		defer func() { <-sched.Stop().Done() }()
	}

	router := api.NewRouter(api.Deps{
		DB:        gdb,
		Redis:     redisClient,
		Config:    cfg,
		Publisher: publisher,
		Limiter:   limiter,
		Sentry:    sentryEnabled,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv, "db": cfg.DBDriver}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}
