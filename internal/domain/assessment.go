package domain

import (
	"time"
)

// FeatureCount is the fixed length of every feature vector.
const FeatureCount = 3 + SymptomCount + RiskFactorCount + 1

// FeatureVector is the ordered numeric encoding of a PatientRecord:
// age, weight, height, the symptom flags, the risk factor flags and the
// blood glucose reading. Any bound classifier must be trained on this order.
type FeatureVector [FeatureCount]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// RiskTier represents a discrete diabetes risk level
type RiskTier string

const (
	RiskLow      RiskTier = "Low"
	RiskModerate RiskTier = "Moderate"
	RiskHigh     RiskTier = "High"
)

// String returns the tier name
func (t RiskTier) String() string {
	return string(t)
}

// Label returns the wire label used in prediction responses, e.g. "High risk".
func (t RiskTier) Label() string {
	return string(t) + " risk"
}

// ParseRiskTier accepts either the tier name or its wire label.
func ParseRiskTier(s string) (RiskTier, bool) {
	for _, t := range []RiskTier{RiskLow, RiskModerate, RiskHigh} {
		if s == string(t) || s == t.Label() {
			return t, true
		}
	}
	return "", false
}

// ScoringMethod identifies which strategy produced a score
type ScoringMethod string

const (
	MethodModel    ScoringMethod = "model"
	MethodFallback ScoringMethod = "fallback"
)

// ScoreResult is the outcome of a single prediction.
type ScoreResult struct {
	Value  float64       `json:"value"`  // 0–100, rounded to 2 decimals
	Tier   RiskTier      `json:"tier"`
	Method ScoringMethod `json:"method"`
}

// PredictionResponse is the wire shape returned to prediction callers.
type PredictionResponse struct {
	Prediction float64 `json:"prediction"`
	RiskLevel  string  `json:"riskLevel"`
}

// Response converts the result to its wire shape.
func (r *ScoreResult) Response() PredictionResponse {
	return PredictionResponse{
		Prediction: r.Value,
		RiskLevel:  r.Tier.Label(),
	}
}

// Assessment is a stored prediction together with its inputs.
type Assessment struct {
	ID            string        `json:"id"`
	RequestID     string        `json:"request_id,omitempty"`
	Record        PatientRecord `json:"record"`
	Features      FeatureVector `json:"features"`
	Score         float64       `json:"score"`
	Tier          RiskTier      `json:"tier"`
	Method        ScoringMethod `json:"method"`
	ModelName     string        `json:"model_name,omitempty"`
	MissingFields []string      `json:"missing_fields,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
