package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/birthday-buddy/internal/api/handlers"
	"github.com/hugh/birthday-buddy/internal/api/middleware"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/internal/users"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB                *gorm.DB
	Cache             *cache.Facade
	Logger            *slog.Logger
	JWTService        *auth.JWTService
	AuthService       *auth.Service
	UserService       *users.Service
	WorkspaceService  *workspaces.Service
	BirthdayService   *birthdays.Service
	Matcher           *reminder.Matcher
	Job               *reminder.Job
	Scheduler         *reminder.Scheduler // nil when the scheduler is disabled
	Sender            reminder.Sender
	Enqueuer          handlers.Enqueuer // nil disables ?async=true
	MetricsGatherer   prometheus.Gatherer
	AllowedOrigins    []string // CORS allowed origins
	RateLimitRequests int      // Rate limit requests per window
	RateLimitSeconds  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitRequests > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitSeconds))
	}

	// CORS - restrict to configured origins
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Cache)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger)
	workspaceHandler := handlers.NewWorkspaceHandler(cfg.WorkspaceService, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.UserService, cfg.Logger)
	birthdayHandler := handlers.NewBirthdayHandler(cfg.BirthdayService, cfg.WorkspaceService, cfg.Matcher, cfg.Logger)
	utilsHandler := handlers.NewUtilsHandler(handlers.UtilsConfig{
		Job:        cfg.Job,
		Scheduler:  cfg.Scheduler,
		Birthdays:  cfg.BirthdayService,
		Users:      cfg.UserService,
		Workspaces: cfg.WorkspaceService,
		Sender:     cfg.Sender,
		Cache:      cfg.Cache,
		Enqueuer:   cfg.Enqueuer,
		Logger:     cfg.Logger,
	})

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	gatherer := cfg.MetricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	requireAuth := middleware.Auth(cfg.JWTService, cfg.AuthService)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.With(requireAuth).Get("/me", authHandler.Me)

		r.Route("/workspaces", func(r chi.Router) {
			// Public so new users can pick one when registering
			r.Get("/", workspaceHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/{id}", workspaceHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSuperuser)
					r.Post("/", workspaceHandler.Create)
					r.Patch("/{id}", workspaceHandler.Update)
					r.Delete("/{id}", workspaceHandler.Delete)
				})
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userHandler.List)
			r.With(middleware.RequireSuperuser).Get("/all", userHandler.ListAll)
			r.Get("/{id}", userHandler.Get)
			r.Patch("/{id}", userHandler.Update)
			r.With(middleware.RequireSuperuser).Delete("/{id}", userHandler.Delete)
		})

		r.Route("/birthdays", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", birthdayHandler.List)
			r.With(middleware.RequireSuperuser).Get("/all", birthdayHandler.ListAll)
			r.Get("/today", birthdayHandler.Today)
			r.Post("/", birthdayHandler.Create)
			r.Get("/{id}", birthdayHandler.Get)
			r.Patch("/{id}", birthdayHandler.Update)
			r.Delete("/{id}", birthdayHandler.Delete)
		})

		r.Route("/utils", func(r chi.Router) {
			r.Get("/timezones", utilsHandler.Timezones)

			// Admin maintenance
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(middleware.RequireSuperuser)

				r.Post("/run-birthday-job", utilsHandler.RunBirthdayJob)
				r.Get("/scheduler", utilsHandler.Scheduler)
				r.Post("/refresh-birthday-table", utilsHandler.RefreshBirthdayTable)
				r.Post("/backfill-birthdays", utilsHandler.BackfillBirthdays)
				r.Post("/ping-slack", utilsHandler.PingSlack)

				r.Get("/cache", utilsHandler.InspectCache)
				r.Delete("/cache", utilsHandler.FlushCache)
				r.Get("/cache/keys", utilsHandler.CacheKeys)
				r.Get("/cache/birthdays/workspaces/{id}", utilsHandler.InspectWorkspaceCache)
				r.Delete("/cache/birthdays/workspaces/{id}", utilsHandler.InvalidateWorkspaceCache)
				r.Get("/cache/birthdays/users/{id}", utilsHandler.InspectUserCache)
				r.Delete("/cache/birthdays/users/{id}", utilsHandler.InvalidateUserCache)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	return &Router{r}
}
