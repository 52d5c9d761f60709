package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/model"
)

// MockScorer is a mock implementation of the Scorer interface
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, features domain.FeatureVector) (float64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockScorer) Name() string {
	return "mock-model"
}

type fixedClassifier struct {
	p float64
}

func (c *fixedClassifier) PredictProba(ctx context.Context, v domain.FeatureVector) (float64, error) {
	return c.p, nil
}

func (c *fixedClassifier) Name() string { return "fixed" }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestModelStrategy(t *testing.T) {
	ctx := context.Background()
	engine := NewRuleEngine(DefaultRuleWeights())
	ex := extraction(9, 5, 0)

	t.Run("Uses_Model_Score", func(t *testing.T) {
		scorer := new(MockScorer)
		scorer.On("Score", ctx, ex.Vector).Return(55.0, nil)

		strategy := NewModelStrategy(scorer, engine, false, quietLogger())
		score, method, err := strategy.Score(ctx, ex)

		require.NoError(t, err)
		assert.Equal(t, 55.0, score)
		assert.Equal(t, domain.MethodModel, method)
		scorer.AssertExpectations(t)
	})

	t.Run("Falls_Back_On_Inference_Error", func(t *testing.T) {
		scorer := new(MockScorer)
		scorer.On("Score", ctx, ex.Vector).Return(0.0, fmt.Errorf("%w: boom", domain.ErrClassifierUnavailable))

		strategy := NewModelStrategy(scorer, engine, false, quietLogger())
		score, method, err := strategy.Score(ctx, ex)

		require.NoError(t, err)
		assert.Equal(t, 80.0, score)
		assert.Equal(t, domain.MethodFallback, method)
	})

	t.Run("Fail_Policy_Surfaces_Internal_Error", func(t *testing.T) {
		scorer := new(MockScorer)
		scorer.On("Score", ctx, ex.Vector).Return(0.0, fmt.Errorf("%w: boom", domain.ErrClassifierUnavailable))

		strategy := NewModelStrategy(scorer, engine, true, quietLogger())
		_, _, err := strategy.Score(ctx, ex)

		require.Error(t, err)
		var internal *domain.InternalError
		assert.True(t, errors.As(err, &internal))
		assert.True(t, errors.Is(err, domain.ErrClassifierUnavailable))
	})
}

func TestSelectStrategy(t *testing.T) {
	engine := NewRuleEngine(DefaultRuleWeights())
	cfg := domain.ModelConfig{OnInferenceError: domain.OnInferenceErrorFallback}

	ruleOnly := SelectStrategy(nil, errors.New("model file not found"), engine, cfg, quietLogger())
	assert.IsType(t, &RuleStrategy{}, ruleOnly)
	assert.Equal(t, domain.MethodFallback, ruleOnly.Mode())
	assert.Empty(t, ruleOnly.ModelName())

	disabled := SelectStrategy(nil, model.ErrModelDisabled, engine, cfg, quietLogger())
	assert.IsType(t, &RuleStrategy{}, disabled)

	withModel := SelectStrategy(&fixedClassifier{p: 0.3}, nil, engine, cfg, quietLogger())
	require.IsType(t, &ModelStrategy{}, withModel)
	assert.Equal(t, domain.MethodModel, withModel.Mode())
	assert.Equal(t, "fixed", withModel.ModelName())
	assert.False(t, withModel.(*ModelStrategy).failOnError)

	cfg.OnInferenceError = domain.OnInferenceErrorFail
	strict := SelectStrategy(&fixedClassifier{p: 0.3}, nil, engine, cfg, quietLogger())
	assert.True(t, strict.(*ModelStrategy).failOnError)
}

func TestRuleStrategy(t *testing.T) {
	strategy := NewRuleStrategy(NewRuleEngine(DefaultRuleWeights()))

	score, method, err := strategy.Score(context.Background(), extraction(0, 0, 250))
	require.NoError(t, err)
	assert.Equal(t, 20.0, score)
	assert.Equal(t, domain.MethodFallback, method)
}
