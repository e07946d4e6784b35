// Package server contains the HTTP and WebSocket handlers for the minifeed API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	_ "minifeed/docs" // swagger docs
	"minifeed/internal/cache"
	"minifeed/internal/config"
	"minifeed/internal/database"
	"minifeed/internal/featureflags"
	"minifeed/internal/middleware"
	"minifeed/internal/models"
	"minifeed/internal/notifications"
	"minifeed/internal/repository"
	"minifeed/internal/service"

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

const (
	globalRateLimit       = 100
	globalRateLimitWindow = time.Minute
)

// Repositories bundles the storage interfaces the server is built on.
type Repositories struct {
	Users repository.UserRepository
	Posts repository.PostRepository
	Likes repository.LikeRepository
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	likeRepo       repository.LikeRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	userService    *service.UserService
	postService    *service.PostService
	likeService    *service.LikeService
	authService    *service.AuthService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	// Redis is optional: without it the server runs uncached and without push events.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps builds a server over an existing database and Redis client.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}

	s := NewServerWithRepos(cfg, Repositories{
		Users: repository.NewUserRepository(db),
		Posts: repository.NewPostRepository(db),
		Likes: repository.NewLikeRepository(db),
	}, redisClient)
	s.db = db
	return s, nil
}

// NewServerWithRepos builds a server over arbitrary repository implementations. It is used
// with the in-memory store and in tests.
func NewServerWithRepos(cfg *config.Config, repos Repositories, redisClient *redis.Client) *Server {
	s := &Server{
		config:         cfg,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("minifeed-api"),
		userRepo:       repos.Users,
		postRepo:       repos.Posts,
		likeRepo:       repos.Likes,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	var likeNotifier service.LikeNotifier
	if redisClient != nil {
		cache.SetClient(redisClient)
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		likeNotifier = s.notifier
	}

	s.userService = service.NewUserService(s.userRepo)
	s.postService = service.NewPostService(s.postRepo, s.userRepo, s.likeRepo)
	s.likeService = service.NewLikeService(s.likeRepo, s.postRepo, s.userRepo, likeNotifier, s.featureFlags)
	s.authService = service.NewAuthService(s.userRepo, cfg.JWTSecret, cfg.TokenTTL())

	return s
}

// App returns the Fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.app = fiber.New(fiber.Config{
			AppName:      "minifeed API",
			ErrorHandler: s.errorHandler,
		})
		s.SetupMiddleware(s.app)
		s.SetupRoutes(s.app)
	}
	return s.app
}

// errorHandler renders errors that escape handlers (unknown routes, body limits, panics
// recovered by the recover middleware) as standard error responses.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures all global middleware for the app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Spans first so the trace id is available to the context middleware
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := strings.TrimSpace(s.config.AllowedOrigins)
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		// Fiber refuses credentials together with a wildcard origin.
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRateLimit,
		Expiration: globalRateLimitWindow,
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

// SetupRoutes registers every API route.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "minifeed metrics",
	}))

	if s.featureFlags.On(featureflags.Swagger) {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	auth := s.AuthRequired()

	// Specific /users routes before the generic /:id routes
	users := app.Group("/users")
	users.Post("/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.CreateUser)
	users.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Get("/me", auth, s.GetMe)
	users.Get("/", s.GetUsers)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", auth, s.UpdateUser)
	users.Delete("/:id", auth, s.DeleteUser)

	posts := app.Group("/posts")
	posts.Post("/", auth, s.CreatePost)
	posts.Get("/", s.GetPosts)
	posts.Get("/user/:username", s.GetUserPosts)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)

	likes := app.Group("/likes")
	likes.Post("/", auth, s.LikePost)
	likes.Delete("/", auth, s.UnlikePost)
	likes.Get("/summary", s.GetLikesSummary)
	likes.Get("/stats", s.GetLikeStats)
	likes.Delete("/all", auth, s.AdminRequired(), s.ResetAllLikes)
	// Ranking routes before the generic /posts/:id routes
	likes.Get("/posts/most_liked", s.GetMostLikedPosts)
	likes.Get("/posts/least_liked", s.GetLeastLikedPosts)
	likes.Get("/posts/average_likes", s.GetAverageLikes)
	likes.Get("/posts/:id/like_count", s.GetPostLikeCount)
	likes.Get("/posts/:id/is_liked_by/:userId", s.IsPostLikedBy)
	likes.Delete("/posts/:id", auth, s.ResetPostLikes)
	likes.Get("/users/:id/liked_posts", s.GetLikedPosts)
	likes.Get("/users/:id/total_likes", s.GetTotalLikesReceived)
	likes.Delete("/users/:id", auth, s.ResetAuthorLikes)

	app.Get("/feature-flags", auth, s.GetFeatureFlags)

	app.Get("/ws", auth, s.WebsocketUpgrade, s.WebsocketHandler())
}

// LivenessCheck reports that the process is up.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,time=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis can serve traffic. Redis is
// optional: an unconfigured Redis does not make the server unready, a failing one does.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,checks=map[string]string,time=string}
// @Failure 503 {object} object{status=string,checks=map[string]string,time=string}
// @Router /health/ready [get]
// @Router /health [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "in_memory"
	} else if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
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

// AuthRequired resolves the bearer token (Authorization header, or ?token= for browser
// websocket clients) to an existing user.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			scheme, token, ok := strings.Cut(authHeader, " ")
			if ok && strings.EqualFold(scheme, "Bearer") {
				tokenString = strings.TrimSpace(token)
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Not authenticated"))
		}

		user, err := s.authService.ResolveCurrentUser(c.UserContext(), tokenString)
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return s.respondServiceError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("currentUser", user)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))

		return c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(c)
		if user == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Not authenticated"))
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start builds the app, wires realtime delivery and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the server and releases its connections.
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the pub/sub subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
