package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database"
	"github.com/hugh/birthday-buddy/internal/notify"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/internal/tasks"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/hugh/birthday-buddy/pkg/config"
	"github.com/hugh/birthday-buddy/pkg/crypto"
	"github.com/hugh/birthday-buddy/pkg/queue"
	"github.com/hugh/birthday-buddy/pkg/util"
	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting birthday-buddy worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// The worker cannot run without Redis, so the cache shares the queue's instance.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	cacheFacade := cache.New(redisClient, cache.Options{
		Prefix: cfg.Cache.Prefix,
		TTL:    cfg.Cache.TTL(),
		Logger: logger,
	})

	// Must be the server's key or stored webhooks cannot be opened
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if encryptor.Ephemeral() {
		logger.Warn("ENCRYPTION_KEY not set - the worker will not be able to read stored webhooks")
	}

	birthdayService := birthdays.NewService(db, cacheFacade, logger)
	workspaceService := workspaces.NewService(db, cacheFacade, encryptor, logger)
	sender := notify.NewSlack(notify.Config{
		MaxAttempts: cfg.Slack.MaxAttempts,
		BaseBackoff: cfg.Slack.BaseBackoff(),
		Timeout:     cfg.Slack.Timeout(),
	}, logger, nil)
	job := reminder.NewJob(workspaceService, reminder.NewMatcher(birthdayService, clock.WallClock), sender, reminder.JobOptions{
		Timeout: cfg.Scheduler.JobTimeout(),
		Logger:  logger,
	})

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(job, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
		cancel()
	}

	// Wait for context cancellation
	<-ctx.Done()

	redisClient.Close()
	if err := database.Close(db); err != nil {
		logger.Warn("closing database", "error", err)
	}

	logger.Info("worker stopped")
}
