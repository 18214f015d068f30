// Package http exposes the permit tracker over a JSON API. Handlers are a
// thin layer translating requests into application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/garyjia/permits-on-the-go/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// ChatRatePerSecond and ChatBurst limit the chat endpoints, which call
	// the paid LLM API
	ChatRatePerSecond float64
	ChatBurst         int
	MaxUploadBytes    int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ChatRatePerSecond: 1,
		ChatBurst:         5,
		MaxUploadBytes:    service.DefaultMaxDocumentSize,
	}
}

// Services groups the application services the API serves
type Services struct {
	Permits     service.PermitService
	Properties  service.PropertyService
	Tasks       service.TaskService
	Inspections service.InspectionService
	Documents   service.DocumentService
	Chat        service.ChatService
	Reports     service.ReportService
}

// Server is the HTTP server adapter
type Server struct {
	config      ServerConfig
	httpServer  *http.Server
	router      *gin.Engine
	services    Services
	chatLimiter *rate.Limiter
	logger      Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	if err := registerValidators(); err != nil {
		return nil, err
	}

	defaults := DefaultServerConfig()
	if config.ChatRatePerSecond <= 0 {
		config.ChatRatePerSecond = defaults.ChatRatePerSecond
	}
	if config.ChatBurst <= 0 {
		config.ChatBurst = defaults.ChatBurst
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}

	server := &Server{
		config:      config,
		router:      gin.New(),
		services:    services,
		chatLimiter: rate.NewLimiter(rate.Limit(config.ChatRatePerSecond), config.ChatBurst),
		logger:      logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware(s.config.AllowedOrigins))
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/permit-statuses", h.ListPermitStatuses)

		api.POST("/properties", h.CreateProperty)
		api.GET("/properties", h.ListProperties)
		api.GET("/properties/:id", h.GetProperty)
		api.PUT("/properties/:id", h.UpdateProperty)
		api.DELETE("/properties/:id", h.DeleteProperty)

		api.POST("/permits", h.CreatePermit)
		api.GET("/permits", h.ListPermits)
		api.GET("/permits/:id", h.GetPermit)
		api.PATCH("/permits/:id", h.UpdatePermit)
		api.DELETE("/permits/:id", h.DeletePermit)
		api.GET("/permits/:id/activity", h.GetPermitActivity)
		api.GET("/permits/:id/transitions", h.GetPermitTransitions)

		api.POST("/permits/:id/inspections", h.ScheduleInspection)
		api.GET("/permits/:id/inspections", h.ListInspections)
		api.PATCH("/inspections/:id", h.RecordInspectionResult)

		api.POST("/permits/:id/documents", h.UploadDocument)
		api.GET("/permits/:id/documents", h.ListDocuments)
		api.GET("/documents/:id/download", h.DownloadDocument)
		api.DELETE("/documents/:id", h.DeleteDocument)

		api.POST("/tasks", h.CreateTask)
		api.GET("/tasks", h.ListTasks)
		api.PATCH("/tasks/:id", h.UpdateTask)
		api.DELETE("/tasks/:id", h.DeleteTask)

		chat := api.Group("/chat", rateLimitMiddleware(s.chatLimiter))
		chat.POST("", h.SendChat)
		chat.GET("/conversations/:id/messages", h.ListChatMessages)

		api.GET("/reports/permits.xlsx", h.DownloadPermitRegister)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

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

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
