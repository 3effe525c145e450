package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	httpHandlers "github.com/liquidtasks/core/internal/adapters/http"
	"github.com/liquidtasks/core/internal/adapters/localstore"
	"github.com/liquidtasks/core/internal/adapters/media"
	"github.com/liquidtasks/core/internal/adapters/remote"
	"github.com/liquidtasks/core/internal/adapters/repository"
	"github.com/liquidtasks/core/internal/application/services"
	"github.com/liquidtasks/core/internal/application/store"
	syncsvc "github.com/liquidtasks/core/internal/application/sync"
	"github.com/liquidtasks/core/internal/infrastructure/config"
	"github.com/liquidtasks/core/internal/infrastructure/database"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/infrastructure/metrics"
)

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	db      *database.DB
	syncer  *syncsvc.Service
	session *services.SessionService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New wires the whole application: local mirror, task store, remote sync,
// services, handlers and routes.
func New(cfg *config.Config, db *database.DB, redisClient *redis.Client, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	m := metrics.New()

	// Local persistence and the canonical in-memory store. The store is
	// hydrated once from disk so the task list is usable before (and without)
	// any remote connection.
	local, err := localstore.New(cfg.Storage.DataDir, appLogger)
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}
	taskStore := store.New(local, appLogger)
	taskStore.HydrateFromLocal()

	// Remote adapters.
	remoteTasks := remote.NewTaskStore(db.DB, db.DSN(), appLogger)
	chatStore := remote.NewChatStore(redisClient, cfg.Chat.HistoryLimit, appLogger)
	uploader := media.New(cfg.Media)

	// Repositories.
	userRepo := repository.NewUserRepository(db.DB)
	authRepo := repository.NewAuthRepository(db.DB)

	// Services. The syncer's base context spans the server's lifetime;
	// Shutdown tears the subscription down through syncer.Stop.
	syncer := syncsvc.New(context.Background(), remoteTasks, taskStore, appLogger, m)
	taskService := services.NewTaskService(taskStore, syncer, appLogger)
	chatService := services.NewChatService(chatStore, cfg.Chat.HistoryLimit, appLogger, m)
	authService := services.NewAuthService(userRepo, authRepo, uploader, cfg.JWT, appLogger)
	sessionService, err := services.NewSessionService(taskStore, syncer, local, appLogger)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	// Handlers.
	taskHandler := httpHandlers.NewTaskHandler(taskService, taskStore, appLogger)
	chatHandler := httpHandlers.NewChatHandler(chatService, sessionService, appLogger)
	authHandler := httpHandlers.NewAuthHandler(authService, sessionService, appLogger)

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger,
		db:      db,
		syncer:  syncer,
		session: sessionService,
	}

	server.setupMiddleware(m)
	server.setupRoutes(taskHandler, chatHandler, authHandler, authService)

	if cfg.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(m *metrics.Metrics) {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.config.Security.RateLimitRequests),
				Burst:     s.config.Security.RateLimitRequests,
				ExpiresIn: s.config.Security.RateLimitWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	s.echo.Use(middleware.RequestID())

	s.echo.Use(metricsMiddleware(m))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(taskHandler *httpHandlers.TaskHandler, chatHandler *httpHandlers.ChatHandler, authHandler *httpHandlers.AuthHandler, authService *services.AuthService) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	v1 := s.echo.Group("/api/v1")

	// Auth routes (public)
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.RefreshToken)
	authGroup.POST("/logout", authHandler.Logout, s.authMiddleware(authService))

	// Session routes
	v1.GET("/me", authHandler.Me)
	v1.PUT("/me", authHandler.UpdateProfile, s.authMiddleware(authService))
	v1.POST("/me/avatar", authHandler.UploadAvatar, s.authMiddleware(authService))
	v1.GET("/preferences/theme", authHandler.GetTheme)
	v1.PUT("/preferences/theme", authHandler.SetTheme)

	// Task routes. Tasks are usable without an account: guest mutations stay
	// local and migrate on sign-in.
	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/stats", taskHandler.GetStats)
	taskGroup.GET("/stream", taskHandler.StreamTasks)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.POST("/:id/toggle", taskHandler.ToggleTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)

	// Chat routes
	chatGroup := v1.Group("/chat")
	chatGroup.GET("", chatHandler.History)
	chatGroup.POST("", chatHandler.Send)
	chatGroup.GET("/stream", chatHandler.Stream)
}

func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			m.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	}
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	// The remote store being down is not fatal for the task list itself, but
	// readiness reports it so operators see degraded sync.
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "document_store_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown stops the sync subscription and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	s.syncer.Stop()
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if ve, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": ve.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
