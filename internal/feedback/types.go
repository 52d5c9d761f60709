// Package feedback stores confirmed clinical outcomes for risk assessments.
// Each entry keeps the predicted score and the feature vector, so an export
// doubles as labelled data for retraining the classifier.
package feedback

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/diabetes-risk-server/internal/domain"
)

// Outcome is the diagnosis confirmed after an assessment.
type Outcome string

const (
	OutcomeDiabetes    Outcome = "diabetes"
	OutcomePrediabetes Outcome = "prediabetes"
	OutcomeNoDiabetes  Outcome = "no_diabetes"
)

// ParseOutcome validates an outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeDiabetes, OutcomePrediabetes, OutcomeNoDiabetes:
		return o, nil
	default:
		return "", fmt.Errorf("unknown outcome %q (want diabetes, prediabetes or no_diabetes)", s)
	}
}

// ExpectedTier is the risk tier that agrees with the outcome.
func (o Outcome) ExpectedTier() domain.RiskTier {
	switch o {
	case OutcomeDiabetes:
		return domain.RiskHigh
	case OutcomePrediabetes:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

// Concordant reports whether a predicted tier agrees with the outcome.
func Concordant(tier domain.RiskTier, outcome Outcome) bool {
	return outcome.ExpectedTier() == tier
}

// Feedback is a confirmed outcome attached to an assessment.
type Feedback struct {
	ID             int64                `json:"id,omitempty"`
	AssessmentID   string               `json:"assessment_id"`
	PredictedScore float64              `json:"predicted_score"`
	PredictedTier  domain.RiskTier      `json:"predicted_tier"`
	Method         domain.ScoringMethod `json:"method"`
	Features       domain.FeatureVector `json:"features"`
	Outcome        Outcome              `json:"outcome"`
	Concordant     bool                 `json:"concordant"`
	Notes          string               `json:"notes,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// New builds feedback for an assessment.
func New(a *domain.Assessment, outcome Outcome, notes string) *Feedback {
	return &Feedback{
		AssessmentID:   a.ID,
		PredictedScore: a.Score,
		PredictedTier:  a.Tier,
		Method:         a.Method,
		Features:       a.Features,
		Outcome:        outcome,
		Concordant:     Concordant(a.Tier, outcome),
		Notes:          notes,
	}
}

// prepare validates an entry and derives Concordant before it is written.
func (f *Feedback) prepare() error {
	if f.AssessmentID == "" {
		return fmt.Errorf("assessment_id is required")
	}
	if _, err := ParseOutcome(string(f.Outcome)); err != nil {
		return err
	}
	if _, ok := domain.ParseRiskTier(string(f.PredictedTier)); !ok {
		return fmt.Errorf("unknown predicted tier %q", f.PredictedTier)
	}
	f.Concordant = Concordant(f.PredictedTier, f.Outcome)
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates the feedback for an assessment.
	// A second save for the same assessment replaces the outcome.
	Save(ctx context.Context, feedback *Feedback) error

	// Get returns the feedback for an assessment, or nil if none exists.
	Get(ctx context.Context, assessmentID string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes every entry to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export. Entries whose assessment already has
	// feedback are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version      string      `json:"version"`
	ExportedAt   time.Time   `json:"exported_at"`
	FeatureNames []string    `json:"feature_names"`
	Count        int         `json:"count"`
	Feedback     []*Feedback `json:"feedback"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

const exportVersion = "1.0"

// exportAll writes every entry of a store in the export format.
func exportAll(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &FeedbackExport{
		Version:      exportVersion,
		ExportedAt:   time.Now().UTC(),
		FeatureNames: FeatureNames(),
		Count:        len(all),
		Feedback:     all,
	}
	return encodeExport(writer, export)
}

// importAll saves every entry of an export that has no feedback yet.
func importAll(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	export, err := decodeExport(reader)
	if err != nil {
		return 0, 0, err
	}

	for _, fb := range export.Feedback {
		existing, err := s.Get(ctx, fb.AssessmentID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		fb.ID = 0
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}
