// Package server contains the HTTP handlers for the blog API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
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
	auth           *middleware.Authenticator
	limiter        *middleware.RateLimiter
	notifier       *notifications.Notifier

	tags       *service.TagRegistry
	posts      *service.PostService
	engagement *service.EngagementService
	query      *service.QueryService
	comments   *service.CommentService
	profiles   *service.ProfileService
	images     *service.ImageService
}

// NewServer connects to the database and Redis described by cfg and builds
// a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the server then runs without cache, events or
// Redis-backed rate limits.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	blobs, err := storage.NewFileStore(cfg.ImageUploadDir)
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}

	tagRepo := repository.NewTagRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	imageRepo := repository.NewImageRepository(db)

	postCache := cache.New(redisClient)
	notifier := notifications.NewNotifier(redisClient)
	tags := service.NewTagRegistry(db, tagRepo)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill-api"),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.IsProduction() && redisClient != nil),
		notifier:       notifier,
		tags:           tags,
		posts: service.NewPostService(db, postRepo, imageRepo, tags, postCache, notifier,
			cfg.PostsAllowDirectPublish),
		engagement: service.NewEngagementService(db, postRepo, likeRepo, bookmarkRepo, postCache, notifier),
		query:      service.NewQueryService(postRepo, postCache, cfg.DefaultPageSize, cfg.MaxPageSize),
		comments:   service.NewCommentService(db, commentRepo, postRepo, cfg.CommentsAllowAnonymous),
		profiles:   service.NewProfileService(db, profileRepo, postRepo, imageRepo, postCache),
		images:     service.NewImageService(imageRepo, blobs, cfg.ImageMaxUploadSizeMB),
	}
	return s, nil
}

// Authenticator exposes the token verifier, mainly for tooling that needs
// to mint development tokens.
func (s *Server) Authenticator() *middleware.Authenticator {
	return s.auth
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:   "Quill API",
		BodyLimit: (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	// Tracing runs before the context middleware so the trace id reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	required := s.auth.Required()
	optional := s.auth.Optional()

	posts := api.Group("/posts")
	posts.Get("/", optional, s.ListPosts)
	posts.Post("/filter", optional, s.FilterPosts)
	posts.Post("/", required, s.limiter.Limit("create_post", 10, time.Minute, middleware.FailOpen), s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id routes.
	posts.Post("/:id/publish", required, s.PublishPost)
	posts.Put("/:id/like", required, s.SetLiked)
	posts.Delete("/:id/like", required, s.UnsetLiked)
	posts.Get("/:id/like", required, s.LikeStatus)
	posts.Post("/:id/bookmark", required, s.CreateBookmark)
	posts.Get("/:id/comments", optional, s.ListComments)
	posts.Post("/:id/comments", optional,
		s.limiter.Limit("create_comment", 5, time.Minute, middleware.FailOpen), s.CreateComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Put("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	drafts := api.Group("/drafts", required)
	drafts.Post("/", s.CreateDraft)
	drafts.Get("/", s.ListMyDrafts)

	bookmarks := api.Group("/bookmarks", required)
	bookmarks.Get("/", s.ListMyBookmarks)
	bookmarks.Patch("/:id", s.UpdateBookmark)
	bookmarks.Delete("/:id", s.DeleteBookmark)

	comments := api.Group("/comments", required)
	comments.Patch("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	profiles := api.Group("/profiles")
	profiles.Get("/me", required, s.GetMyProfile)
	profiles.Put("/me", required, s.UpdateMyProfile)
	profiles.Get("/by-username/:username", s.GetProfileByUsername)
	profiles.Get("/:id", s.GetProfile)

	api.Get("/tags", s.ListTags)

	images := api.Group("/images")
	images.Post("/", required, s.limiter.Limit("upload_image", 20, time.Hour, middleware.FailClosed), s.UploadImage)
	images.Get("/:id", s.GetImage)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a
// missing client is reported but does not fail readiness.
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

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// Start starts the server and blocks until it stops listening.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
