package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
)

// AssessmentRepository handles assessment persistence
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

const selectAssessment = `
	SELECT id::text, request_id, record, features, score, tier, method,
		   model_name, missing_fields, created_at
	FROM assessments`

// Save inserts an assessment. Saving the same ID twice is a no-op.
func (r *AssessmentRepository) Save(ctx context.Context, a *domain.Assessment) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("invalid assessment ID %q: %w", a.ID, err)
	}

	record, err := json.Marshal(a.Record)
	if err != nil {
		return fmt.Errorf("encoding patient record: %w", err)
	}

	missing := a.MissingFields
	if missing == nil {
		missing = []string{}
	}

	query := `
		INSERT INTO assessments (
			id, request_id, record, features, score, tier, method,
			model_name, missing_fields, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		id,
		a.RequestID,
		record,
		a.Features.Slice(),
		a.Score,
		string(a.Tier),
		string(a.Method),
		a.ModelName,
		missing,
		a.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": a.ID,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": a.ID,
		"tier":          a.Tier,
	}).Debug("Assessment saved")

	return nil
}

// GetByID retrieves an assessment by its ID
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.Assessment, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}

	a, err := scanAssessment(r.db.QueryRow(ctx, selectAssessment+` WHERE id = $1`, parsed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment by ID")
		return nil, fmt.Errorf("getting assessment by ID: %w", err)
	}
	return a, nil
}

// ListRecent returns the newest assessments first
func (r *AssessmentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Assessment, error) {
	rows, err := r.db.Query(ctx, selectAssessment+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	assessments := make([]*domain.Assessment, 0, limit)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}
	return assessments, nil
}

func scanAssessment(row pgx.Row) (*domain.Assessment, error) {
	var (
		a        domain.Assessment
		record   []byte
		features []float64
		tier     string
		method   string
	)

	err := row.Scan(
		&a.ID,
		&a.RequestID,
		&record,
		&features,
		&a.Score,
		&tier,
		&method,
		&a.ModelName,
		&a.MissingFields,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(features) != domain.FeatureCount {
		return nil, fmt.Errorf("assessment %s has %d features", a.ID, len(features))
	}
	copy(a.Features[:], features)

	if err := json.Unmarshal(record, &a.Record); err != nil {
		return nil, fmt.Errorf("decoding patient record: %w", err)
	}

	a.Tier = domain.RiskTier(tier)
	a.Method = domain.ScoringMethod(method)
	if len(a.MissingFields) == 0 {
		a.MissingFields = nil
	}
	return &a, nil
}
