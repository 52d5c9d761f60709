package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/features"
	"github.com/diabetes-risk-server/internal/model"
)

// Scorer produces a 0–100 score from a feature vector.
// *model.Adapter is the production implementation.
type Scorer interface {
	Score(ctx context.Context, features domain.FeatureVector) (float64, error)
	Name() string
}

// ScoringStrategy produces an unrounded score for an extraction.
type ScoringStrategy interface {
	Score(ctx context.Context, ex *features.Extraction) (float64, domain.ScoringMethod, error)
	// Mode reports the method the strategy prefers.
	Mode() domain.ScoringMethod
	// ModelName is empty when no classifier is bound.
	ModelName() string
}

// RuleStrategy scores every request with the rule engine.
type RuleStrategy struct {
	engine *RuleEngine
}

// NewRuleStrategy creates a rule-only strategy.
func NewRuleStrategy(engine *RuleEngine) *RuleStrategy {
	return &RuleStrategy{engine: engine}
}

// Score implements ScoringStrategy.
func (s *RuleStrategy) Score(ctx context.Context, ex *features.Extraction) (float64, domain.ScoringMethod, error) {
	return s.engine.Score(ex), domain.MethodFallback, nil
}

// Mode implements ScoringStrategy.
func (s *RuleStrategy) Mode() domain.ScoringMethod { return domain.MethodFallback }

// ModelName implements ScoringStrategy.
func (s *RuleStrategy) ModelName() string { return "" }

// ModelStrategy scores with the learned classifier and falls back to the
// rule engine when a single inference fails, unless failOnError is set.
type ModelStrategy struct {
	scorer      Scorer
	engine      *RuleEngine
	failOnError bool
	logger      *logrus.Logger
}

// NewModelStrategy creates a classifier-backed strategy.
func NewModelStrategy(scorer Scorer, engine *RuleEngine, failOnError bool, logger *logrus.Logger) *ModelStrategy {
	return &ModelStrategy{
		scorer:      scorer,
		engine:      engine,
		failOnError: failOnError,
		logger:      logger,
	}
}

// Score implements ScoringStrategy.
func (s *ModelStrategy) Score(ctx context.Context, ex *features.Extraction) (float64, domain.ScoringMethod, error) {
	score, err := s.scorer.Score(ctx, ex.Vector)
	if err == nil {
		return score, domain.MethodModel, nil
	}

	if s.failOnError {
		return 0, "", domain.NewInternalError("model inference", err)
	}

	s.logger.WithFields(logrus.Fields{
		"model": s.scorer.Name(),
		"error": err.Error(),
	}).Error("Classifier inference failed, using fallback score")

	return s.engine.Score(ex), domain.MethodFallback, nil
}

// Mode implements ScoringStrategy.
func (s *ModelStrategy) Mode() domain.ScoringMethod { return domain.MethodModel }

// ModelName implements ScoringStrategy.
func (s *ModelStrategy) ModelName() string { return s.scorer.Name() }

// SelectStrategy picks the strategy for the process lifetime from the
// loader's outcome.
func SelectStrategy(classifier model.Classifier, loadErr error, engine *RuleEngine, cfg domain.ModelConfig, logger *logrus.Logger) ScoringStrategy {
	if loadErr != nil || classifier == nil {
		return NewRuleStrategy(engine)
	}
	failOnError := cfg.OnInferenceError == domain.OnInferenceErrorFail
	return NewModelStrategy(model.NewAdapter(classifier), engine, failOnError, logger)
}
