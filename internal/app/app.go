// Package app wires configuration into the stores, connectors and services
// shared by the API server and the letscience CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/alerts"
	"github.com/letscience-intel-server/internal/analysis"
	"github.com/letscience-intel-server/internal/database"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/ingest"
	"github.com/letscience-intel-server/internal/repository"
	"github.com/letscience-intel-server/pkg/external"
)

// App holds the long-lived dependencies of a process
type App struct {
	Config *domain.Config
	Logger *logrus.Logger

	DB           *database.DB
	Products     *repository.ProductRepository
	Intelligence *repository.IntelligenceRepository
	Interactions *repository.InteractionRepository
	Users        *repository.UserRepository
	Alerts       alerts.Store

	Cache      *external.TieredCache
	Connectors *external.ResilientClient

	redis *external.CacheClient
}

// Open connects to PostgreSQL, the alert store and, when configured, Redis
func Open(ctx context.Context, cfg *domain.Config, databaseURL string, logger *logrus.Logger) (*App, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(connectCtx, database.ConfigFromDomain(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Products:     repository.NewProductRepository(db.Pool, logger),
		Intelligence: repository.NewIntelligenceRepository(db.Pool, logger),
		Interactions: repository.NewInteractionRepository(db.Pool, logger),
		Users:        repository.NewUserRepository(db.Pool, logger),
	}

	a.Alerts, err = OpenAlertStore(cfg.Alerts, databaseURL)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL != "" {
		client, err := external.NewCacheClient(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, caching connector responses in memory only")
		} else {
			a.redis = client
		}
	}
	a.Cache = external.NewTieredCache(cfg.Cache, a.redis, logger)

	sources, err := external.NewSources(cfg.ExternalAPI)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create connectors: %w", err)
	}
	a.Connectors = external.NewResilientClient(sources, a.Cache, logger)

	logger.WithFields(logrus.Fields{
		"alerts_backend": cfg.Alerts.Backend,
		"redis":          a.redis != nil,
	}).Info("Application dependencies ready")
	return a, nil
}

// OpenAlertStore opens the configured subscription backend
func OpenAlertStore(cfg domain.AlertsConfig, databaseURL string) (alerts.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := alerts.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open alert store: %w", err)
		}
		return store, nil
	case "", "postgres":
		store, err := alerts.NewPostgresStoreFromURL(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open alert store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown alerts backend %q", cfg.Backend)
}

// MechanismClassifier loads the configured rule file, or the built-in rules
func (a *App) MechanismClassifier() (*analysis.MechanismClassifier, error) {
	if a.Config.Analysis.MechanismRulesFile == "" {
		return analysis.NewMechanismClassifier(nil), nil
	}
	rules, err := analysis.LoadMechanismRules(a.Config.Analysis.MechanismRulesFile)
	if err != nil {
		return nil, err
	}
	return analysis.NewMechanismClassifier(rules), nil
}

// Pipeline builds the ingestion pipeline. Alerts go to the publisher, which
// may be nil when nobody listens.
func (a *App) Pipeline(publisher alerts.Publisher) *ingest.Pipeline {
	var notifier ingest.Notifier
	if publisher != nil {
		notifier = alerts.NewDispatcher(a.Alerts, publisher, a.Logger)
	}
	return ingest.NewPipeline(a.Connectors, ingest.Stores{
		Products:     a.Products,
		Details:      a.Products,
		Intelligence: a.Intelligence,
	}, notifier, a.Logger, 0)
}

// Close releases every connection
func (a *App) Close() {
	if a.Alerts != nil {
		if err := a.Alerts.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close alert store")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
