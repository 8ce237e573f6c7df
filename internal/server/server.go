package server

import (
	"time"

	"leadbox/internal/cache"
	"leadbox/internal/config"
	"leadbox/internal/conversations"
	"leadbox/internal/handlers"
	"leadbox/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Server represents the application server
type Server struct {
	echo   *echo.Echo
	store  *store.SQLStore
	svc    *conversations.Service
	coord  *conversations.Coordinator
	config *config.Config
	logger zerolog.Logger
	cache  *cache.Cache
}

// New creates a new server instance wired over the given record store
func New(cfg *config.Config, sqlStore *store.SQLStore, logger zerolog.Logger) *Server {
	storeTimeout := time.Duration(cfg.StoreTimeout) * time.Second
	session := conversations.Session{AgentID: cfg.AgentID, Email: cfg.AgentEmail}

	svc := conversations.NewService(sqlStore, session, logger, storeTimeout)
	coord := conversations.NewCoordinator(svc, sqlStore, logger, storeTimeout)

	return &Server{
		config: cfg,
		store:  sqlStore,
		svc:    svc,
		coord:  coord,
		logger: logger,
		cache:  cache.New(),
	}
}

// Service exposes the view service; used by main for the initial load
func (s *Server) Service() *conversations.Service {
	return s.svc
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// API group with /api prefix
	api := s.echo.Group("/api")

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.storeDB()))

	cacheTTL := time.Duration(s.config.CacheTTL) * time.Second

	// Inbox view
	api.GET("/", handlers.RootHandler(s.config.Version))
	api.GET("/conversations", handlers.ConversationsHandler(s.svc))
	api.GET("/conversations/:id", handlers.ConversationHandler(s.svc))
	api.GET("/metrics", handlers.MetricsHandler(s.svc, s.cache, cacheTTL))
	api.GET("/trends", handlers.TrendsHandler(s.svc, s.cache, cacheTTL))

	// Optimistic mutations
	api.POST("/conversations/bulk", handlers.BulkHandler(s.coord, s.cache))
	api.POST("/conversations/:id/read", handlers.MarkReadHandler(s.coord, s.cache))
	api.POST("/conversations/:id/lcp", handlers.ToggleLCPHandler(s.coord, s.cache))
	api.POST("/conversations/:id/review-override", handlers.ToggleReviewOverrideHandler(s.coord, s.cache))
	api.POST("/conversations/:id/unflag", handlers.UnflagHandler(s.coord, s.cache))
	api.POST("/conversations/:id/clear-flag", handlers.ClearFlagHandler(s.coord, s.cache))
	api.POST("/conversations/:id/not-spam", handlers.NotSpamHandler(s.coord, s.cache))
	api.POST("/conversations/:id/complete", handlers.CompleteHandler(s.coord, s.cache))
	api.POST("/conversations/:id/notes", handlers.SaveNotesHandler(s.coord, s.cache))

	// Admin
	api.POST("/admin/rescore", handlers.RescoreHandler(s.config, s.store, s.svc, s.logger))
}

func (s *Server) storeDB() *sqlx.DB {
	if s.store == nil {
		return nil
	}
	return s.store.DB()
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}
