package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/diabetes-risk-server/internal/api"
	"github.com/diabetes-risk-server/internal/app"
	"github.com/diabetes-risk-server/internal/config"
	"github.com/diabetes-risk-server/internal/logging"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager(config.WithConfigFile(os.Getenv("DIABETES_RISK_CONFIG")))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, configManager, logger, app.Options{Feedback: true})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	server := api.NewServer(configManager, application.APIDependencies(), logger)
	logger.WithField("environment", cfg.Environment).Infof("Starting diabetes risk server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, gracefully shutting down...")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		application.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
