// Package api exposes the license verification endpoint for the desktop
// application and the authenticated admin API over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cvite-license-server/internal/auth"
	"cvite-license-server/internal/database"
	"cvite-license-server/internal/events"
	"cvite-license-server/internal/license"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LicenseService is the surface of the license package the handlers need
type LicenseService interface {
	Verify(ctx context.Context, rawKey, ip string) (*license.Verdict, error)
	Create(ctx context.Context, req license.CreateClientRequest) (*database.Client, error)
	Block(ctx context.Context, id, reason string) (*database.Client, error)
	Unblock(ctx context.Context, id string, days int) (*database.Client, error)
	Extend(ctx context.Context, id string, days int) (*database.Client, error)
	RenewKey(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	ListClients(ctx context.Context) ([]database.ClientSummary, error)
	ListEvents(ctx context.Context, clientID string, limit int) ([]database.LicenseEvent, error)
	Stats(ctx context.Context) (*database.LicenseStats, error)
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	ProductionMode bool
}

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	service      LicenseService
	authService  *auth.Service
	health       HealthChecker
	hub          *WSHub
	config       ServerConfig
	logger       zerolog.Logger
	checkLimiter Limiter
	loginLimiter Limiter
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	service LicenseService,
	authService *auth.Service,
	health HealthChecker,
	eventBus *events.EventBus,
	checkLimiter Limiter,
	loginLimiter Limiter,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:       router,
		service:      service,
		authService:  authService,
		health:       health,
		config:       config,
		logger:       logger.With().Str("component", "api").Logger(),
		checkLimiter: checkLimiter,
		loginLimiter: loginLimiter,
	}

	server.hub = NewWSHub(server.logger)
	go server.hub.Run()
	if eventBus != nil {
		eventBus.SubscribeAll(func(event events.Event) {
			server.hub.BroadcastEvent(event)
		})
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// Desktop application endpoint, no auth, tight per-IP limit
	s.router.POST("/api/license/check",
		rateLimitMiddleware(s.checkLimiter, "too many license checks, try again later"),
		s.handleLicenseCheck)

	s.router.POST("/api/admin/login",
		rateLimitMiddleware(s.loginLimiter, "too many login attempts, try again later"),
		s.handleAdminLogin)

	admin := s.router.Group("/api/admin")
	admin.Use(auth.Middleware(s.authService.JWT()))
	{
		admin.GET("/clients", s.handleListClients)
		admin.POST("/clients", s.handleCreateClient)
		admin.PUT("/clients/:id/block", s.handleBlockClient)
		admin.PUT("/clients/:id/unblock", s.handleUnblockClient)
		admin.PUT("/clients/:id/extend", s.handleExtendClient)
		admin.PUT("/clients/:id/renew-key", s.handleRenewKey)
		admin.DELETE("/clients/:id", s.handleDeleteClient)
		admin.GET("/clients/:id/events", s.handleClientEvents)
		admin.GET("/stats", s.handleStats)
	}

	// WebSocket upgrade cannot carry an Authorization header from browsers,
	// the token rides in the query string instead
	s.router.GET("/api/admin/events/live", s.handleEventsLive)
}

// Start runs the HTTP server until it is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
	})
}

// writeServiceError maps the license error taxonomy onto HTTP statuses
func (s *Server) writeServiceError(c *gin.Context, err error) {
	var svcErr *license.Error
	if errors.As(err, &svcErr) {
		status := http.StatusInternalServerError
		switch svcErr.Code {
		case license.CodeValidation:
			status = http.StatusBadRequest
		case license.CodeNotFound:
			status = http.StatusNotFound
		case license.CodeDuplicateEmail:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": svcErr.Code, "message": svcErr.Message})
		return
	}

	s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled service error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   license.CodeStore,
		"message": "internal storage error",
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
