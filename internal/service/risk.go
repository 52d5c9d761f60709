package service

import "github.com/diabetes-risk-server/internal/domain"

// Tier cut-offs. Both are inclusive lower bounds.
const (
	HighRiskThreshold     = 70.0
	ModerateRiskThreshold = 40.0
)

// ClassifyRisk maps a 0–100 score to its risk tier.
func ClassifyRisk(score float64) domain.RiskTier {
	switch {
	case score >= HighRiskThreshold:
		return domain.RiskHigh
	case score >= ModerateRiskThreshold:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}
