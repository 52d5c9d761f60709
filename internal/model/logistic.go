package model

import (
	"context"
	"fmt"
	"math"

	"github.com/diabetes-risk-server/internal/domain"
)

// LogisticRegression is a linear classifier with a sigmoid link.
type LogisticRegression struct {
	name         string
	coefficients domain.FeatureVector
	intercept    float64
}

// NewLogisticRegression builds a logistic classifier from exported weights.
func NewLogisticRegression(name string, coefficients []float64, intercept float64) (*LogisticRegression, error) {
	if len(coefficients) != domain.FeatureCount {
		return nil, fmt.Errorf("logistic regression needs %d coefficients, got %d", domain.FeatureCount, len(coefficients))
	}
	lr := &LogisticRegression{name: name, intercept: intercept}
	copy(lr.coefficients[:], coefficients)
	return lr, nil
}

// Name returns the model name.
func (l *LogisticRegression) Name() string {
	return l.name
}

// PredictProba implements Classifier.
func (l *LogisticRegression) PredictProba(ctx context.Context, features domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	z := l.intercept
	for i, w := range l.coefficients {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
