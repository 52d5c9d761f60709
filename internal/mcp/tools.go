package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/features"
	"github.com/diabetes-risk-server/internal/service"
)

// PredictRiskResult is the structured output of predict_diabetes_risk.
type PredictRiskResult struct {
	AssessmentID  string            `json:"assessment_id"`
	Score         float64           `json:"score"`
	Tier          string            `json:"tier"`
	RiskLevel     string            `json:"risk_level"`
	Method        string            `json:"method"`
	ModelName     string            `json:"model_name,omitempty"`
	MissingFields []string          `json:"missing_fields,omitempty"`
	Breakdown     service.Breakdown `json:"fallback_breakdown"`
}

// ExplainFallbackResult is the structured output of explain_fallback_score.
type ExplainFallbackResult struct {
	Breakdown   service.Breakdown `json:"breakdown"`
	Tier        string            `json:"tier"`
	Explanation string            `json:"explanation"`
}

func (s *Server) handlePredictRisk(ctx context.Context, req *mcp.CallToolRequest, record domain.PatientRecord) (*mcp.CallToolResult, PredictRiskResult, error) {
	s.logger.WithField("tool", ToolPredictRisk).Info("Tool invoked")

	assessment, err := s.assessments.Assess(ctx, &record, "")
	if err != nil {
		return s.createErrorResult("prediction failed", err), PredictRiskResult{}, nil
	}

	ex, err := features.Extract(&record)
	if err != nil {
		return s.createErrorResult("prediction failed", err), PredictRiskResult{}, nil
	}

	result := PredictRiskResult{
		AssessmentID:  assessment.ID,
		Score:         assessment.Score,
		Tier:          string(assessment.Tier),
		RiskLevel:     assessment.Tier.Label(),
		Method:        string(assessment.Method),
		ModelName:     assessment.ModelName,
		MissingFields: assessment.MissingFields,
		Breakdown:     s.engine.Breakdown(ex),
	}

	text := fmt.Sprintf("Diabetes risk score %.2f (%s), scored by %s", result.Score, result.RiskLevel, result.Method)
	if len(result.MissingFields) > 0 {
		text += fmt.Sprintf("; missing personal info: %v", result.MissingFields)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, result, nil
}

func (s *Server) handleExplainFallback(ctx context.Context, req *mcp.CallToolRequest, record domain.PatientRecord) (*mcp.CallToolResult, ExplainFallbackResult, error) {
	s.logger.WithField("tool", ToolExplainFallback).Info("Tool invoked")

	ex, err := features.Extract(&record)
	if err != nil {
		return s.createErrorResult("invalid patient record", err), ExplainFallbackResult{}, nil
	}

	b := s.engine.Breakdown(ex)
	w := s.engine.Weights()
	explanation := fmt.Sprintf(
		"%d/%d symptoms x %.0f = %.2f; %d/%d risk factors x %.0f = %.2f; glucose %.1f mg/dL adds %.0f; total %.2f",
		b.SymptomsPresent, domain.SymptomCount, w.SymptomWeight, b.SymptomScore,
		b.RiskFactorsPresent, domain.RiskFactorCount, w.RiskFactorWeight, b.RiskFactorScore,
		b.BloodGlucose, b.GlucoseScore, b.Total,
	)
	if b.Clamped {
		explanation += fmt.Sprintf(" (capped at %.0f)", w.MaxScore)
	}

	result := ExplainFallbackResult{
		Breakdown:   b,
		Tier:        string(service.ClassifyRisk(b.Total)),
		Explanation: explanation,
	}

	s.logger.WithFields(logrus.Fields{"tool": ToolExplainFallback, "total": b.Total}).Debug("Fallback score explained")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: explanation}},
	}, result, nil
}

func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
