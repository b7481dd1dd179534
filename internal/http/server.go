// Package http provides the API server, middleware, and metrics server.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shieldops/secrets/internal/config"
	secretsHTTP "github.com/shieldops/secrets/internal/secrets/http"
	secretsUseCase "github.com/shieldops/secrets/internal/secrets/usecase"
)

// Server is the API HTTP server.
type Server struct {
	config        *config.Config
	secretHandler *secretsHTTP.SecretHandler
	secretUseCase secretsUseCase.SecretUseCase
	metricsMW     gin.HandlerFunc
	logger        *slog.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates the API server. metricsMW is optional and, when set, is
// installed before the route handlers to observe every request.
func NewServer(
	cfg *config.Config,
	secretHandler *secretsHTTP.SecretHandler,
	secretUseCase secretsUseCase.SecretUseCase,
	metricsMW gin.HandlerFunc,
	logger *slog.Logger,
) *Server {
	return &Server{
		config:        cfg,
		secretHandler: secretHandler,
		secretUseCase: secretUseCase,
		metricsMW:     metricsMW,
		logger:        logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the router with middleware and all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if s.metricsMW != nil {
		router.Use(s.metricsMW)
	}

	if corsMW := createCORSMiddleware(s.config.CORSEnabled, s.config.CORSAllowOrigins, s.logger); corsMW != nil {
		router.Use(corsMW)
	}

	if s.config.RateLimitEnabled {
		router.Use(RateLimitMiddleware(
			s.config.RateLimitRequestsPerSec,
			s.config.RateLimitBurst,
			s.logger,
		))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.GET("/health", s.secretHandler.HealthHandler)

	secrets := v1.Group("/secrets")
	secrets.POST("", s.secretHandler.CreateHandler)
	secrets.GET("", s.secretHandler.ListHandler)
	secrets.GET("/search", s.secretHandler.SearchHandler)
	secrets.GET("/stats", s.secretHandler.StatsHandler)
	secrets.POST("/bulk/create", s.secretHandler.BulkCreateHandler)
	secrets.POST("/bulk/delete", s.secretHandler.BulkDeleteHandler)
	secrets.POST("/bulk/rotate", s.secretHandler.BulkRotateHandler)
	secrets.GET("/:id", s.secretHandler.GetHandler)
	secrets.GET("/:id/metadata", s.secretHandler.GetMetadataHandler)
	secrets.PATCH("/:id", s.secretHandler.UpdateHandler)
	secrets.DELETE("/:id", s.secretHandler.DeleteHandler)
	secrets.POST("/:id/rotate", s.secretHandler.RotateHandler)

	return router
}

// healthHandler reports process liveness only.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic. Storage must
// be reachable; degraded sync providers do not fail readiness.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	if s.secretUseCase == nil {
		components["storage"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	health, err := s.secretUseCase.Health(c.Request.Context())
	if err != nil || !health.Storage {
		components["storage"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	components["storage"] = "ok"
	for _, p := range health.Providers {
		state := "ok"
		if !p.Reachable {
			state = "error"
		}
		components["provider_"+p.Name] = state
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		s.router = s.SetupRouter()
	}
	return s.router
}

// Start starts the API HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.router = s.SetupRouter()
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
