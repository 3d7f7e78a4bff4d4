// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls; every authorization decision stays server-side in the
// policy behind those services.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payops/payment-workflow/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		MaxUploadSize: 10 << 20,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config          ServerConfig
	httpServer      *http.Server
	router          *gin.Engine
	workflowService service.WorkflowService
	soaService      service.SoaService
	auditService    service.AuditService
	actorService    service.ActorService
	logger          Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	workflowService service.WorkflowService,
	soaService service.SoaService,
	auditService service.AuditService,
	actorService service.ActorService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:          config,
		router:          router,
		workflowService: workflowService,
		soaService:      soaService,
		auditService:    auditService,
		actorService:    actorService,
		logger:          logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.workflowService, s.soaService, s.auditService,
		s.actorService, s.config.MaxUploadSize, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		// Actors
		api.POST("/actors", handlers.RegisterActor)
		api.GET("/actors/:id", handlers.GetActor)

		// Batches
		api.POST("/batches", handlers.CreateBatch)
		api.GET("/batches", handlers.ListBatches)
		api.GET("/batches/:id", handlers.GetBatch)
		api.POST("/batches/:id/requests", handlers.AddRequest)
		api.GET("/batches/:id/requests", handlers.ListBatchRequests)
		api.POST("/batches/:id/submit", handlers.SubmitBatch)
		api.POST("/batches/:id/cancel", handlers.CancelBatch)
		api.GET("/batches/:id/actions", handlers.BatchActions)
		api.GET("/batches/:id/soa-summary", handlers.LiveSoaSummary)
		api.GET("/batches/:id/soa-export", handlers.ExportSoa)

		// External batch driver endpoints
		api.POST("/batches/:id/process", handlers.ProcessBatch)
		api.POST("/batches/:id/complete", handlers.CompleteBatch)

		// Requests
		api.GET("/requests/:id", handlers.GetRequest)
		api.PATCH("/requests/:id", handlers.EditRequest)
		api.POST("/requests/:id/approve", handlers.ApproveRequest)
		api.POST("/requests/:id/reject", handlers.RejectRequest)
		api.POST("/requests/:id/mark-paid", handlers.MarkPaid)
		api.GET("/requests/:id/actions", handlers.RequestActions)
		api.POST("/requests/:id/soa", handlers.UploadSoa)
		api.GET("/requests/:id/soa", handlers.ListSoaVersions)

		// SOA documents
		api.GET("/soa/:id/download", handlers.DownloadSoa)

		// Approval queue
		api.GET("/approval-queue", handlers.ApprovalQueue)

		// Audit trail
		api.GET("/audit", handlers.QueryAudit)
	}
}

// Start starts the HTTP server
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

	s.logger.Info("Stopping HTTP server")

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

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
