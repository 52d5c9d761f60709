// Package app wires configuration into the running components shared by the
// server, MCP and CLI binaries.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/api"
	"github.com/diabetes-risk-server/internal/cache"
	"github.com/diabetes-risk-server/internal/database"
	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/feedback"
	"github.com/diabetes-risk-server/internal/model"
	"github.com/diabetes-risk-server/internal/repository"
	"github.com/diabetes-risk-server/internal/service"
)

// Options selects the optional components to start.
type Options struct {
	// Feedback opens the outcome feedback store.
	Feedback bool
}

// App holds the wired components. DB and Feedback are nil when disabled.
type App struct {
	Config      domain.ConfigManager
	Logger      *logrus.Logger
	Loader      *model.Loader
	Engine      *service.RuleEngine
	Predictor   *service.Predictor
	Assessments *service.AssessmentService
	Cache       *cache.AssessmentCache
	DB          *database.DB
	Feedback    feedback.Store
}

// New builds the application. The classifier is bound here, once; a load
// failure selects fallback scoring rather than failing startup.
func New(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger, opts Options) (*App, error) {
	cfg := configManager.GetConfig()
	a := &App{
		Config: configManager,
		Logger: logger,
		Engine: service.NewRuleEngine(service.DefaultRuleWeights()),
		Loader: model.NewLoader(cfg.Model, logger),
	}

	classifier, loadErr := a.Loader.Load(ctx)
	strategy := service.SelectStrategy(classifier, loadErr, a.Engine, cfg.Model, logger)
	a.Predictor = service.NewPredictor(strategy, logger)
	logger.WithFields(logrus.Fields{
		"scoring_mode": strategy.Mode(),
		"model":        strategy.ModelName(),
	}).Info("Scoring strategy selected")

	assessmentCache, err := cache.NewAssessmentCache(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment cache: %w", err)
	}
	a.Cache = assessmentCache

	// Interface value stays nil unless a database is configured.
	var repo domain.AssessmentRepository
	if cfg.Database.Enabled {
		if err := a.openDatabase(ctx); err != nil {
			a.Close()
			return nil, err
		}
		repo = repository.NewAssessmentRepository(a.DB.Pool, logger)
	}
	a.Assessments = service.NewAssessmentService(a.Predictor, repo, a.Cache, logger)

	if opts.Feedback {
		store, err := feedback.Open(cfg.Feedback, configManager.GetDatabaseURL())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		a.Feedback = store
		logger.WithField("driver", cfg.Feedback.Driver).Info("Feedback store opened")
	}

	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	cfg := a.Config.GetDatabaseConfig()

	if cfg.AutoMigrate {
		runner, err := database.NewMigrationRunner(a.Config.GetDatabaseURL(), cfg.MigrationsPath, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create migration runner: %w", err)
		}
		err = runner.Up(ctx)
		if closeErr := runner.Close(); closeErr != nil {
			a.Logger.WithError(closeErr).Warn("Failed to close migration runner")
		}
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.NewConnection(ctx, *cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db
	return nil
}

// APIDependencies returns the handler dependencies and health probes.
func (a *App) APIDependencies() api.Dependencies {
	deps := api.Dependencies{
		Assessments: a.Assessments,
		Feedback:    a.Feedback,
		Checks:      map[string]api.HealthCheck{},
	}
	if a.DB != nil {
		deps.Checks["database"] = a.DB.Health
	}
	if a.Cache.RedisEnabled() {
		deps.Checks["redis"] = a.Cache.Ping
	}
	return deps
}

// Close releases every opened resource.
func (a *App) Close() {
	if a.Feedback != nil {
		if err := a.Feedback.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close feedback store")
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close assessment cache")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
