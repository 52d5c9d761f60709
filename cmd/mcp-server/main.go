package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/diabetes-risk-server/internal/app"
	"github.com/diabetes-risk-server/internal/config"
	"github.com/diabetes-risk-server/internal/logging"
	"github.com/diabetes-risk-server/internal/mcp"
)

func main() {
	// stdout carries the MCP protocol; everything else goes to stderr.
	log.SetOutput(os.Stderr)

	configManager, err := config.NewManager(config.WithConfigFile(os.Getenv("DIABETES_RISK_CONFIG")))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == logging.OutputStdout {
		logCfg.Output = logging.OutputStderr
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, configManager, logger, app.Options{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	server, err := mcp.NewServer(cfg.MCP, application.Assessments, application.Engine, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server stopped with error")
		application.Close()
		os.Exit(1)
	}

	logger.Info("MCP server stopped")
}
