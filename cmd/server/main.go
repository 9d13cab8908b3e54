package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/internal/api"
	"github.com/hugh/birthday-buddy/internal/api/handlers"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/internal/notify"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/internal/users"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/hugh/birthday-buddy/pkg/config"
	"github.com/hugh/birthday-buddy/pkg/crypto"
	"github.com/hugh/birthday-buddy/pkg/queue"
	"github.com/hugh/birthday-buddy/pkg/util"
	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
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

	logger.Info("starting birthday-buddy server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Connect to Redis. The service runs without it, reading straight from the database.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, caching disabled", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	collector := metrics.NewCollector()
	prometheus.MustRegister(collector)

	cacheFacade := cache.New(redisClient, cache.Options{
		Prefix:  cfg.Cache.Prefix,
		TTL:     cfg.Cache.TTL(),
		Logger:  logger,
		Metrics: collector,
	})

	// Webhooks are sealed at rest
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if encryptor.Ephemeral() {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - stored webhooks will be unreadable after restart")
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, cacheFacade, logger)
	birthdayService := birthdays.NewService(db, cacheFacade, logger)
	workspaceService := workspaces.NewService(db, cacheFacade, encryptor, logger)
	userService := users.NewService(db, cacheFacade, birthdayService, logger)

	if cfg.Admin.Email != "" {
		seedSuperuser(authService, cfg.Admin, logger)
	}

	sender := notify.NewSlack(notify.Config{
		MaxAttempts: cfg.Slack.MaxAttempts,
		BaseBackoff: cfg.Slack.BaseBackoff(),
		Timeout:     cfg.Slack.Timeout(),
	}, logger, collector)
	matcher := reminder.NewMatcher(birthdayService, clock.WallClock)
	job := reminder.NewJob(workspaceService, matcher, sender, reminder.JobOptions{
		Timeout: cfg.Scheduler.JobTimeout(),
		Logger:  logger,
		Metrics: collector,
	})

	var scheduler *reminder.Scheduler
	if cfg.Scheduler.Enabled {
		loc, _ := time.LoadLocation(cfg.Scheduler.Timezone) // validated by config.Load
		scheduler = reminder.NewScheduler(job, reminder.SchedulerConfig{
			Hour:     cfg.Scheduler.Hour,
			Minute:   cfg.Scheduler.Minute,
			Location: loc,
		}, logger)
		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("scheduler disabled")
	}

	// Initialize Asynq client for queued manual runs
	var asynqClient *asynq.Client
	var enqueuer handlers.Enqueuer
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		enqueuer = asynqClient
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Cache:             cacheFacade,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		UserService:       userService,
		WorkspaceService:  workspaceService,
		BirthdayService:   birthdayService,
		Matcher:           matcher,
		Job:               job,
		Scheduler:         scheduler,
		Sender:            sender,
		Enqueuer:          enqueuer,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitSeconds:  cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server. The synchronous job endpoint may run for a while.
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Scheduler.JobTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if scheduler != nil {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("scheduler did not stop cleanly", "error", err)
		}
	}

	// Close Asynq client
	if asynqClient != nil {
		asynqClient.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	if err := database.Close(db); err != nil {
		logger.Warn("closing database", "error", err)
	}

	logger.Info("server stopped")
}

func seedSuperuser(authService *auth.Service, admin config.AdminConfig, logger *slog.Logger) {
	dob := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	if admin.DateOfBirth != "" {
		parsed, err := models.ParseDate(admin.DateOfBirth)
		if err != nil {
			logger.Error("invalid ADMIN_DOB, expected YYYY-MM-DD", "error", err)
			os.Exit(1)
		}
		dob = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := authService.SeedSuperuser(ctx, admin.Email, admin.Password, dob); err != nil {
		logger.Error("failed to seed superuser", "error", err)
		os.Exit(1)
	}
}
