// Package mcp exposes risk scoring as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/service"
)

// Tool names
const (
	ToolPredictRisk     = "predict_diabetes_risk"
	ToolExplainFallback = "explain_fallback_score"
)

// Server wraps the MCP SDK server and the scoring services behind it.
type Server struct {
	config      domain.MCPConfig
	mcpServer   *mcp.Server
	assessments *service.AssessmentService
	engine      *service.RuleEngine
	logger      *logrus.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg domain.MCPConfig, assessments *service.AssessmentService, engine *service.RuleEngine, logger *logrus.Logger) (*Server, error) {
	if assessments == nil || engine == nil {
		return nil, fmt.Errorf("assessment service and rule engine are required")
	}

	name := cfg.ServerName
	if name == "" {
		name = "diabetes-risk-mcp-server"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "v0.1.0"
	}

	s := &Server{
		config:      cfg,
		mcpServer:   mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		assessments: assessments,
		engine:      engine,
		logger:      logger,
	}
	s.registerTools()

	s.logger.WithFields(logrus.Fields{
		"server_name":  name,
		"scoring_mode": assessments.Predictor().Strategy().Mode(),
	}).Info("MCP server initialized")
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolPredictRisk,
		Description: "Score a patient's diabetes risk from demographics, symptom flags, risk factor flags " +
			"and an optional blood glucose reading. Returns a 0-100 score, a Low/Moderate/High tier " +
			"and whether the learned model or the fallback rule produced it.",
	}, s.handlePredictRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolExplainFallback,
		Description: "Show how the fallback rule scores a patient record: symptom, risk factor and " +
			"glucose contributions, independent of the learned model.",
	}, s.handleExplainFallback)

	s.logger.WithField("tool_count", 2).Debug("Registered MCP tools")
}

// Run serves the tools over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
