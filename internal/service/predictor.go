package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/features"
)

// Prediction is a scored record together with its extracted features.
type Prediction struct {
	Result     *domain.ScoreResult
	Extraction *features.Extraction
}

// Predictor orchestrates vectorization, scoring, rounding and tiering.
type Predictor struct {
	strategy ScoringStrategy
	logger   *logrus.Logger
}

// NewPredictor creates a predictor bound to a scoring strategy.
func NewPredictor(strategy ScoringStrategy, logger *logrus.Logger) *Predictor {
	return &Predictor{strategy: strategy, logger: logger}
}

// Strategy returns the strategy chosen at startup.
func (p *Predictor) Strategy() ScoringStrategy {
	return p.strategy
}

// Predict scores a patient record.
func (p *Predictor) Predict(ctx context.Context, record *domain.PatientRecord) (*domain.ScoreResult, error) {
	prediction, err := p.Evaluate(ctx, record)
	if err != nil {
		return nil, err
	}
	return prediction.Result, nil
}

// Evaluate scores a patient record and keeps the extraction.
// Malformed records fail with *domain.MalformedInputError; anything else
// unexpected becomes *domain.InternalError.
func (p *Predictor) Evaluate(ctx context.Context, record *domain.PatientRecord) (prediction *Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", r).Error("Prediction panicked")
			prediction = nil
			err = domain.NewInternalError("predict", fmt.Errorf("panic: %v", r))
		}
	}()

	ex, err := features.Extract(record)
	if err != nil {
		return nil, err
	}

	raw, method, err := p.strategy.Score(ctx, ex)
	if err != nil {
		return nil, err
	}

	score := clamp(round2(raw), 0, 100)
	return &Prediction{
		Result: &domain.ScoreResult{
			Value:  score,
			Tier:   ClassifyRisk(score),
			Method: method,
		},
		Extraction: ex,
	}, nil
}

// round2 rounds to two decimals from the exact binary value, ties to even.
func round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return v
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}
