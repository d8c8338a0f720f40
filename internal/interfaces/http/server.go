// Package http provides the HTTP adapter for the application layer. It is a
// thin translation layer: requests become service calls, service errors become
// status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/identity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	identity   identity.Service
	claims     service.ClaimService
	rules      service.RuleService
	autofill   service.AutofillService
	export     service.ExportService
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	identitySvc identity.Service,
	claimSvc service.ClaimService,
	ruleSvc service.RuleService,
	autofillSvc service.AutofillService,
	exportSvc service.ExportService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		identity: identitySvc,
		claims:   claimSvc,
		rules:    ruleSvc,
		autofill: autofillSvc,
		export:   exportSvc,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.identity, s.claims, s.rules, s.autofill, s.export, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	authed := api.Group("")
	authed.Use(s.authMiddleware())
	{
		authed.GET("/users", handlers.ListUsers)
		authed.POST("/users", handlers.CreateUser)
		authed.GET("/users/managers", handlers.ListManagers)

		authed.POST("/rules", handlers.CreateRule)
		authed.GET("/rules/active", handlers.GetActiveRule)
		authed.GET("/rules/:id", handlers.GetRule)
		authed.DELETE("/rules/:id", handlers.DeleteRule)

		authed.POST("/claims", handlers.CreateClaim)
		authed.GET("/claims", handlers.ListClaims)
		authed.GET("/claims/export", handlers.ExportClaims)
		authed.GET("/claims/:id", handlers.GetClaim)
		authed.PUT("/claims/:id", handlers.UpdateClaim)
		authed.POST("/claims/:id/submit", handlers.SubmitClaim)
		authed.POST("/claims/:id/decisions", handlers.RecordDecision)
		authed.GET("/claims/:id/status", handlers.ClaimStatus)

		authed.POST("/receipts/extract", handlers.ExtractReceipt)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
