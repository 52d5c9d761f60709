// Package model binds learned classifiers to the scoring pipeline.
package model

import (
	"context"
	"fmt"
	"math"

	"github.com/diabetes-risk-server/internal/domain"
)

// Classifier estimates the probability of the positive (diabetic) class
// for a feature vector.
type Classifier interface {
	PredictProba(ctx context.Context, features domain.FeatureVector) (float64, error)
	Name() string
}

// Adapter converts classifier probabilities into 0–100 risk scores.
// Every failure is reported as an error wrapping domain.ErrClassifierUnavailable.
type Adapter struct {
	classifier Classifier
}

// NewAdapter creates an adapter around a bound classifier.
func NewAdapter(classifier Classifier) *Adapter {
	return &Adapter{classifier: classifier}
}

// Name returns the bound classifier name.
func (a *Adapter) Name() string {
	if a == nil || a.classifier == nil {
		return ""
	}
	return a.classifier.Name()
}

// Score returns P(positive) × 100 for the vector.
func (a *Adapter) Score(ctx context.Context, features domain.FeatureVector) (score float64, err error) {
	if a == nil || a.classifier == nil {
		return 0, fmt.Errorf("%w: no classifier bound", domain.ErrClassifierUnavailable)
	}

	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = fmt.Errorf("%w: classifier panicked: %v", domain.ErrClassifierUnavailable, r)
		}
	}()

	p, err := a.classifier.PredictProba(ctx, features)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v outside [0, 1]", domain.ErrClassifierUnavailable, p)
	}

	return p * 100, nil
}
