// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bookline_backend/internal/account"
	"bookline_backend/internal/config"
	"bookline_backend/internal/jobs"
	"bookline_backend/internal/middleware"
	"bookline_backend/internal/registration"
	"bookline_backend/internal/shared"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	registrationHandler *registration.Handler
	accountHandler      *account.Handler

	// Jobs
	registrationExpiryJob *jobs.RegistrationExpiryJob

	// Middleware instances
	authMW gin.HandlerFunc
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	registrationHandler *registration.Handler,
	accountHandler *account.Handler,
	registrationExpiryJob *jobs.RegistrationExpiryJob,
	tokenService shared.TokenService,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(tokenService, logger.Named("AuthMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Bookline API is healthy!"})
	})

	v1 := router.Group("/api/v1")

	registrationHandler.RegisterRoutes(v1)
	accountHandler.RegisterRoutes(v1, authMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:            httpServer,
		router:                router,
		cfg:                   cfg,
		logger:                logger,
		registrationHandler:   registrationHandler,
		accountHandler:        accountHandler,
		registrationExpiryJob: registrationExpiryJob,
		authMW:                authMW,
	}, nil
}

func (s *Server) Start() error {
	if s.registrationExpiryJob != nil {
		err := s.registrationExpiryJob.SetupAndStart()
		if err != nil {
			s.logger.Error("Failed to setup and start registration sweep job", zap.Error(err))
		}
	} else {
		s.logger.Info("Registration sweep job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.registrationExpiryJob != nil {
		s.registrationExpiryJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
