package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/rustamrustamv/UEMS/internal/adapter/handler/http"
	"github.com/rustamrustamv/UEMS/internal/config"
	"github.com/rustamrustamv/UEMS/internal/domain/event"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/infrastructure/database"
	"github.com/rustamrustamv/UEMS/internal/middleware/auth"
	"github.com/rustamrustamv/UEMS/internal/usecase"
)

type Server struct {
	config    *config.Config
	logger    *zap.Logger
	echo      *echo.Echo
	repos     *database.Repositories
	gw        gateway.Gateway
	publisher event.Publisher
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories, gw gateway.Gateway, publisher event.Publisher) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:    cfg,
		logger:    logger,
		echo:      e,
		repos:     repos,
		gw:        gw,
		publisher: publisher,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Wire usecases
	reconciliation := usecase.NewReconciliationService(s.repos.Reconciliation, s.repos.Payment, s.publisher, s.logger)
	payments := usecase.NewPaymentService(
		s.repos.Payment,
		s.repos.History,
		reconciliation,
		s.gw,
		s.config.Service.GatewayTimeout,
		s.logger,
	)

	paymentHandler := handlers.NewPaymentHandler(payments, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.gw, reconciliation)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
		},
	}

	// API v1 routes (all authenticated)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	paymentsGroup := v1.Group("/payments")
	paymentsGroup.POST("", paymentHandler.CreatePayment)
	paymentsGroup.GET("", paymentHandler.ListPayments)
	paymentsGroup.GET("/:id", paymentHandler.GetPayment)
	paymentsGroup.GET("/:id/history", paymentHandler.GetHistory)
	paymentsGroup.POST("/:id/refund", paymentHandler.RequestRefund, auth.RequireRole(s.logger, auth.RoleAdmin))

	// Webhook route (outside API versioning, signature-authenticated)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
