package service

import (
	"math"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/features"
)

// RuleWeights parameterises the fallback scoring formula.
type RuleWeights struct {
	SymptomWeight            float64 `json:"symptom_weight"`
	RiskFactorWeight         float64 `json:"risk_factor_weight"`
	GlucoseHighThreshold     float64 `json:"glucose_high_threshold"`
	GlucoseHighScore         float64 `json:"glucose_high_score"`
	GlucoseElevatedThreshold float64 `json:"glucose_elevated_threshold"`
	GlucoseElevatedScore     float64 `json:"glucose_elevated_score"`
	MaxScore                 float64 `json:"max_score"`
}

// DefaultRuleWeights returns the weights of the production fallback formula.
// With these weights the total can reach 100 but never exceed it.
func DefaultRuleWeights() RuleWeights {
	return RuleWeights{
		SymptomWeight:            40,
		RiskFactorWeight:         40,
		GlucoseHighThreshold:     200,
		GlucoseHighScore:         20,
		GlucoseElevatedThreshold: 140,
		GlucoseElevatedScore:     10,
		MaxScore:                 100,
	}
}

// Breakdown exposes the partial scores of a fallback computation.
type Breakdown struct {
	SymptomsPresent    int     `json:"symptoms_present"`
	RiskFactorsPresent int     `json:"risk_factors_present"`
	BloodGlucose       float64 `json:"blood_glucose"`
	SymptomScore       float64 `json:"symptom_score"`
	RiskFactorScore    float64 `json:"risk_factor_score"`
	GlucoseScore       float64 `json:"glucose_score"`
	Total              float64 `json:"total"`
	Clamped            bool    `json:"clamped"`
}

// RuleEngine computes the deterministic fallback risk score.
type RuleEngine struct {
	weights RuleWeights
}

// NewRuleEngine creates a rule engine with the given weights.
func NewRuleEngine(weights RuleWeights) *RuleEngine {
	return &RuleEngine{weights: weights}
}

// Weights returns the engine's weights.
func (e *RuleEngine) Weights() RuleWeights {
	return e.weights
}

// Breakdown scores an extraction and reports every partial score.
func (e *RuleEngine) Breakdown(ex *features.Extraction) Breakdown {
	w := e.weights
	b := Breakdown{
		SymptomsPresent:    ex.SymptomsPresent(),
		RiskFactorsPresent: ex.RiskFactorsPresent(),
		BloodGlucose:       ex.BloodGlucose,
	}

	b.SymptomScore = float64(b.SymptomsPresent) / domain.SymptomCount * w.SymptomWeight
	b.RiskFactorScore = float64(b.RiskFactorsPresent) / domain.RiskFactorCount * w.RiskFactorWeight

	// Strictly greater than: exactly 200 (or 140) falls into the lower band.
	switch {
	case ex.BloodGlucose > w.GlucoseHighThreshold:
		b.GlucoseScore = w.GlucoseHighScore
	case ex.BloodGlucose > w.GlucoseElevatedThreshold:
		b.GlucoseScore = w.GlucoseElevatedScore
	}

	sum := b.SymptomScore + b.RiskFactorScore + b.GlucoseScore
	b.Total = math.Min(sum, w.MaxScore)
	b.Clamped = sum > w.MaxScore
	return b
}

// Score returns the fallback score in [0, MaxScore].
func (e *RuleEngine) Score(ex *features.Extraction) float64 {
	return e.Breakdown(ex).Total
}
