package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/api"
	"github.com/letscience-intel-server/internal/app"
	"github.com/letscience-intel-server/internal/auth"
	"github.com/letscience-intel-server/internal/config"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/notify"
	"github.com/letscience-intel-server/internal/report"
	"github.com/letscience-intel-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	a, err := app.Open(ctx, cfg, configManager.GetDatabaseURL(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	authService, err := auth.NewService(a.Users, cfg.Auth, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize authentication")
	}

	classifier, err := a.MechanismClassifier()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load mechanism rules")
	}
	scorer := analysis.NewInteractionScorer(classifier)

	// Log level and mechanism rules apply live; everything else needs a restart
	configManager.Watch(func(updated *domain.Config) {
		if level, err := logrus.ParseLevel(updated.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
		rules := analysis.DefaultMechanismRules()
		if path := updated.Analysis.MechanismRulesFile; path != "" {
			loaded, err := analysis.LoadMechanismRules(path)
			if err != nil {
				logger.WithError(err).Error("Keeping previous mechanism rules")
				return
			}
			rules = loaded
		}
		classifier.SetRules(rules)
		logger.WithField("rules", len(rules)).Info("Configuration reloaded")
	})

	// Set Gin mode based on log level
	if logger.GetLevel() == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := notify.NewHub(logger, cfg.Server.AllowedOrigins)

	server := api.NewServer(cfg.Server, api.Dependencies{
		Products:     a.Products,
		Details:      a.Products,
		Interactions: a.Interactions,
		Intelligence: service.NewIntelligenceService(logger, a.Products, a.Products, a.Intelligence),
		Combination:  service.NewCombinationService(logger, a.Products, a.Products, a.Interactions, scorer),
		Classifier:   classifier,
		Auth:         authService,
		Alerts:       a.Alerts,
		Hub:          hub,
		Dossier:      report.NewGenerator(),
		Ingest:       a.Pipeline(hub),
		Connectors:   a.Connectors,
		Health:       a.DB.Health,
	}, logger)

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting LetScience intelligence server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
