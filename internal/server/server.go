// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"socialgraph/internal/cache"
	"socialgraph/internal/config"
	"socialgraph/internal/engine"
	"socialgraph/internal/featureflags"
	"socialgraph/internal/identity"
	"socialgraph/internal/middleware"
	"socialgraph/internal/notifications"
	"socialgraph/internal/observability"
	"socialgraph/internal/repository"
	"socialgraph/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics registers the HTTP collectors once per process.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("socialgraph")
	})
	return prom
}

// Deps are the external collaborators a Server is built from. Everything
// except DB and Verifier may be nil.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Verifier   identity.Verifier
	Events     notifications.Publisher
	Subscriber notifications.Subscriber
	Images     ImageUploader
}

// Server holds all dependencies and provides handlers
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	resolver      *identity.Resolver
	engine        *engine.Engine
	postService   *service.PostService
	followService *service.FollowService
	userService   *service.UserService
	notifService  *service.NotificationService
	invalidator   *cache.ViewInvalidator
	dispatcher    *notifications.Dispatcher
	subscriber    notifications.Subscriber
	images        ImageUploader
	featureFlags  *featureflags.Manager

	// closers release connections opened by NewServer, in reverse order.
	closers []func() error
}

// NewServerWithDeps wires repositories, services and the engine over already
// initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	users := repository.NewUserRepository(deps.DB)
	posts := repository.NewPostRepository(deps.DB)
	likes := repository.NewLikeRepository(deps.DB)
	follows := repository.NewFollowRepository(deps.DB)
	notifs := repository.NewNotificationRepository(deps.DB)
	uow := repository.NewUnitOfWork(deps.DB)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	invalidator := cache.NewViewInvalidator(cache.NewStore(deps.Redis), deps.Events)
	dispatcher := notifications.NewDispatcher(deps.Events, flags)

	postService := service.NewPostService(posts, uow, cache.NewStore(deps.Redis), invalidator)
	followService := service.NewFollowService(follows, users, uow, invalidator, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:      cfg,
		db:          deps.DB,
		redis:       deps.Redis,
		shutdownCtx: ctx,
		shutdownFn:  cancel,
		resolver:    identity.NewResolver(deps.Verifier, users),
		engine: engine.New(
			postService,
			service.NewLikeService(posts, likes, uow, invalidator, dispatcher),
			followService,
			service.NewCommentService(posts, uow, invalidator, dispatcher),
		),
		postService:   postService,
		followService: followService,
		userService:   service.NewUserService(users),
		notifService:  service.NewNotificationService(notifs),
		invalidator:   invalidator,
		dispatcher:    dispatcher,
		subscriber:    deps.Subscriber,
		images:        deps.Images,
		featureFlags:  flags,
	}
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "socialgraph",
		BodyLimit: (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			message := "Internal server error"
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
				message = fe.Message
			}
			if status >= fiber.StatusInternalServerError {
				observability.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			}
			return c.Status(status).JSON(engine.Result{Success: false, Error: message})
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
	app.Use(httpMetrics().Middleware)
	app.Use(middleware.TracingMiddleware())
	app.Use(helmet.New())

	// CORS runs before middlewares that can short-circuit (e.g. the route
	// rate limits) so browser clients still receive CORS headers on error
	// responses.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(middleware.Identity(s.resolver))
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	httpMetrics().RegisterAt(app, "/metrics")

	// Throttling is per route, in Redis, so every instance shares one budget.
	api := app.Group("/api")

	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", middleware.RateLimit(s.redis, "create_post", 10, time.Minute, middleware.FailOpen), s.CreatePost)
	posts.Delete("/:id", s.DeletePost)
	posts.Post("/:id/like", middleware.RateLimit(s.redis, "toggle_like", 60, time.Minute, middleware.FailOpen), s.ToggleLike)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, "create_comment", 20, time.Minute, middleware.FailOpen), s.CreateComment)

	users := api.Group("/users")
	users.Get("/me", s.GetMe)
	users.Post("/sync", s.SyncUser)
	users.Get("/suggestions", s.GetSuggestions)
	users.Post("/:id/follow", middleware.RateLimit(s.redis, "toggle_follow", 60, time.Minute, middleware.FailOpen), s.ToggleFollow)
	users.Get("/:username", s.GetProfile)

	api.Get("/notifications", s.ListNotifications)
	api.Delete("/notifications", s.DismissNotifications)
	api.Get("/feature-flags", s.GetFeatureFlags)
	api.Post("/uploads/images", middleware.RateLimit(s.redis, "upload_image", 10, time.Minute, middleware.FailOpen), s.UploadImage)

	app.Get("/ws/notifications", s.requireWebSocketActor, s.NotificationStream())
}

func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
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
	overall := "healthy"
	// Redis only backs caching and realtime delivery; the engine works without it.
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	observability.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, closes notification streams and waits
// for in-flight invalidations and deliveries.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	var err error
	if s.app != nil {
		err = s.app.ShutdownWithContext(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.invalidator.Wait()
		s.dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		observability.Logger.Warn("shutdown deadline reached with side effects in flight")
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if cerr := s.closers[i](); cerr != nil {
			observability.Logger.Warn("failed to close resource", slog.String("error", cerr.Error()))
		}
	}
	s.closers = nil

	observability.Logger.Info("server shutdown complete")
	return err
}
