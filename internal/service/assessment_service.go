package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
)

// ErrHistoryDisabled is returned by listings when no repository is configured.
var ErrHistoryDisabled = errors.New("assessment history requires a database")

// History listing limits
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// AssessmentService scores records and keeps a history of the results.
// Repository and cache are optional; their failures never fail a prediction.
type AssessmentService struct {
	predictor *Predictor
	repo      domain.AssessmentRepository
	cache     domain.AssessmentCache
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAssessmentService creates an assessment service. repo and cache may be nil.
func NewAssessmentService(predictor *Predictor, repo domain.AssessmentRepository, cache domain.AssessmentCache, logger *logrus.Logger) *AssessmentService {
	return &AssessmentService{
		predictor: predictor,
		repo:      repo,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Predictor returns the underlying predictor.
func (s *AssessmentService) Predictor() *Predictor {
	return s.predictor
}

// Assess predicts a record and records the assessment.
func (s *AssessmentService) Assess(ctx context.Context, record *domain.PatientRecord, requestID string) (*domain.Assessment, error) {
	prediction, err := s.predictor.Evaluate(ctx, record)
	if err != nil {
		return nil, err
	}

	result := prediction.Result
	assessment := &domain.Assessment{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		Record:        *record,
		Features:      prediction.Extraction.Vector,
		Score:         result.Value,
		Tier:          result.Tier,
		Method:        result.Method,
		MissingFields: prediction.Extraction.MissingFields,
		CreatedAt:     s.now().UTC(),
	}
	if result.Method == domain.MethodModel {
		assessment.ModelName = s.predictor.Strategy().ModelName()
	}

	logger := s.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"request_id":    requestID,
		"score":         assessment.Score,
		"tier":          assessment.Tier,
		"method":        assessment.Method,
	})
	if len(assessment.MissingFields) > 0 {
		logger = logger.WithField("missing_fields", assessment.MissingFields)
	}
	logger.Info("Risk assessment completed")

	if s.cache != nil {
		if err := s.cache.Set(ctx, assessment); err != nil {
			logger.WithError(err).Warn("Failed to cache assessment")
		}
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, assessment); err != nil {
			logger.WithError(err).Warn("Failed to persist assessment")
		}
	}

	return assessment, nil
}

// Get returns a stored assessment, checking the cache first.
func (s *AssessmentService) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("assessment %q: %w", id, domain.ErrNotFound)
	}

	if s.cache != nil {
		assessment, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("assessment_id", id).Warn("Assessment cache lookup failed")
		} else if ok {
			return assessment, nil
		}
	}

	if s.repo == nil {
		return nil, fmt.Errorf("assessment %q: %w", id, domain.ErrNotFound)
	}

	assessment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, assessment); err != nil {
			s.logger.WithError(err).WithField("assessment_id", id).Warn("Failed to cache assessment")
		}
	}
	return assessment, nil
}

// Recent lists the newest assessments. limit is clamped to [1, MaxRecentLimit].
func (s *AssessmentService) Recent(ctx context.Context, limit int) ([]*domain.Assessment, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.repo.ListRecent(ctx, limit)
}
