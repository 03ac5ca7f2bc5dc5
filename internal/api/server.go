package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/alerts"
	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/auth"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/ingest"
	"github.com/letscience-intel-server/internal/middleware"
	"github.com/letscience-intel-server/internal/notify"
	"github.com/letscience-intel-server/internal/report"
	"github.com/letscience-intel-server/internal/service"
	"github.com/letscience-intel-server/pkg/external"
)

const version = "1.0.0"

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker func(ctx context.Context) error

// Dependencies are the collaborators served by the HTTP API. Ingest,
// Connectors and Health are optional.
type Dependencies struct {
	Products     domain.ProductStore
	Details      domain.ProductDetailStore
	Interactions domain.InteractionStore
	Intelligence *service.IntelligenceService
	Combination  *service.CombinationService
	Classifier   *analysis.MechanismClassifier
	Auth         *auth.Service
	Alerts       alerts.Store
	Hub          *notify.Hub
	Dossier      *report.Generator
	Ingest       *ingest.Pipeline
	Connectors   *external.ResilientClient
	Health       HealthChecker
}

// Server represents the HTTP server
type Server struct {
	config domain.ServerConfig
	deps   Dependencies
	logger *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(config domain.ServerConfig, deps Dependencies, logger *logrus.Logger) *Server {
	if deps.Dossier == nil {
		deps.Dossier = report.NewGenerator()
	}
	if deps.Classifier == nil {
		deps.Classifier = analysis.NewMechanismClassifier(nil)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(middleware.RequestTimeout(config.RequestTimeout))

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		router: router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")

	var limiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if s.config.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(s.config.RateLimit, s.config.RateBurst).Middleware()
	}

	requireAuth := middleware.RequireAuth(s.deps.Auth)
	optionalAuth := middleware.OptionalAuth(s.deps.Auth)
	v1.Use(optionalAuth, limiter)

	v1.GET("/health", s.handleHealth)

	products := v1.Group("/products")
	{
		products.POST("", requireAuth, s.handleCreateProduct)
		products.GET("", s.handleListProducts)
		products.GET("/:id", s.handleGetProduct)
		products.PUT("/:id", requireAuth, s.handleUpdateProduct)
		products.DELETE("/:id", requireAuth, middleware.RequireAdmin(), s.handleDeleteProduct)
		products.GET("/:id/intelligence", s.handleProductIntelligence)
		products.GET("/:id/dossier.pdf", s.handleDossier)
		products.POST("/:id/side-effects", requireAuth, s.handleAddSideEffect)
		products.POST("/:id/pharmacodynamics", requireAuth, s.handleAddPharmacodynamics)
		products.POST("/:id/ingest", requireAuth, middleware.RequireAdmin(), s.handleIngest)
		products.GET("/:id/interactions", s.handleListInteractions)
	}

	v1.POST("/interactions", requireAuth, s.handleCreateInteraction)

	analysisGroup := v1.Group("/analysis")
	{
		analysisGroup.POST("/combination", s.handleAnalyzeCombination)
		analysisGroup.POST("/combination/profiles", s.handleAnalyzeProfiles)
		analysisGroup.POST("/mechanism", s.handleClassifyMechanism)
		analysisGroup.POST("/trial-prediction", s.handlePredictTrial)
	}

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/verify-2fa", s.handleVerifyTwoFactor)
		authGroup.GET("/me", requireAuth, s.handleMe)
		authGroup.POST("/setup-2fa", requireAuth, s.handleSetupTwoFactor)
		authGroup.POST("/enable-2fa", requireAuth, s.handleEnableTwoFactor)
	}

	alertGroup := v1.Group("/alerts")
	{
		alertGroup.POST("/subscribe/:id", requireAuth, s.handleSubscribe)
		alertGroup.DELETE("/unsubscribe/:id", requireAuth, s.handleUnsubscribe)
		alertGroup.GET("/check/:id", s.handleCheckSubscription)
		alertGroup.GET("/my-subscriptions", requireAuth, s.handleMySubscriptions)
		alertGroup.GET("/ws", requireAuth, s.handleAlertStream)
	}
}

// handleHealth reports the database status and the connector breakers
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"database":  "ok",
		"timestamp": time.Now().UTC(),
		"version":   version,
	}

	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			s.logger.WithError(err).Warn("Health check failed")
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
		}
	}
	if s.deps.Connectors != nil {
		body["connectors"] = s.deps.Connectors.Status()
	}

	c.JSON(status, body)
}
