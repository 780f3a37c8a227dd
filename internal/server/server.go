// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "bucketlist/docs" // swagger docs
	"bucketlist/internal/bootstrap"
	"bucketlist/internal/cache"
	"bucketlist/internal/config"
	"bucketlist/internal/media"
	"bucketlist/internal/middleware"
	"bucketlist/internal/models"
	"bucketlist/internal/notifications"
	"bucketlist/internal/observability"
	"bucketlist/internal/repository"
	"bucketlist/internal/service"
	"bucketlist/internal/storage"
	"bucketlist/internal/token"
	"bucketlist/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	storage        storage.Storage
	tokens         *token.Service
	rateLimiter    *middleware.RateLimiter
	notifier       *notifications.Notifier
	authService    *service.AuthService
	profileService *service.ProfileService
	bucketService  *service.BucketService
	commentService *service.CommentService
}

// NewServer creates a new server instance with all dependencies. Outside
// production the schema is migrated on start.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{
		Migrate:  !cfg.IsProduction(),
		SeedDemo: cfg.SeedDemo,
	})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Storage)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.Storage) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret not configured")
	}

	blacklist := token.NewBlacklist(db, redisClient)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	bucketRepo := repository.NewBucketRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		storage:        store,
		tokens:         token.NewService(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(), blacklist),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		notifier:       notifications.NewNotifier(redisClient),
	}

	images := service.NewImageStore(media.NewProcessor(cfg.MaxUploadBytes()), store)
	s.authService = service.NewAuthService(userRepo, s.tokens, validation.NewDefaultPolicy(), cfg.BcryptCost)
	s.profileService = service.NewProfileService(userRepo, profileRepo, images)
	s.bucketService = service.NewBucketService(bucketRepo, images, cache.NewStore(redisClient), s.notifier)
	s.commentService = service.NewCommentService(commentRepo, bucketRepo, s.notifier)

	return s, nil
}

// App returns the Fiber app with middleware and routes installed, building
// it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Bucket List API",
		// Room for multipart framing around the largest accepted image.
		BodyLimit:    int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, &models.AppError{
			Code:    codeForStatus(fe.Code),
			Message: fe.Message,
		})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Uploaded images are fetched cross-origin by the client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: !strings.Contains(origins, "*"),
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Bucket List API Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded media for the local driver
	if local, ok := s.storage.(*storage.LocalStorage); ok && strings.HasPrefix(local.BaseURL(), "/") {
		app.Static(local.BaseURL(), local.Root(), fiber.Static{MaxAge: 3600})
	}

	authenticated := middleware.Auth(s.tokens, middleware.Authenticated)
	optional := middleware.Auth(s.tokens, middleware.Optional)

	// Auth routes
	api.Post("/signup", s.rateLimiter.Limit("signup", 5, 10*time.Minute, middleware.FailOpen), s.Signup)
	api.Post("/login", s.rateLimiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	api.Post("/logout", authenticated, s.Logout)
	api.Post("/token/refresh", s.RefreshToken)
	api.Post("/password/change", authenticated, s.ChangePassword)

	// Profile routes
	profile := api.Group("/profile", authenticated)
	profile.Get("/stats", s.GetProfileStats)
	profile.Get("/", s.GetProfile)
	profile.Put("/", s.UpdateProfile)
	profile.Patch("/", s.UpdateProfile)

	// Bucket routes. Specific /:id/:resource routes come before /:id.
	buckets := api.Group("/buckets")
	buckets.Get("/", optional, s.ListBuckets)
	buckets.Post("/", authenticated, s.CreateBucket)
	buckets.Post("/:id/toggle-complete", authenticated, s.ToggleComplete)
	buckets.Post("/:id/upvote", authenticated, s.ToggleUpvote)
	buckets.Get("/:id/comments", s.GetComments)
	buckets.Post("/:id/comments", authenticated,
		s.rateLimiter.Limit("create_comment", 30, time.Minute, middleware.FailOpen), s.CreateComment)
	buckets.Get("/:id", optional, s.GetBucket)
	buckets.Patch("/:id", authenticated, s.UpdateBucket)
	buckets.Delete("/:id", authenticated, s.DeleteBucket)

	// Comment routes
	comments := api.Group("/comments")
	comments.Delete("/:id/delete", authenticated, s.DeleteComment)
	comments.Delete("/:id", authenticated, s.DeleteComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so it
// only fails readiness when it is configured and unreachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
