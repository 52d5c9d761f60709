package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/feedback"
	"github.com/diabetes-risk-server/internal/middleware"
	"github.com/diabetes-risk-server/internal/service"
)

// Response headers set on predictions
const (
	HeaderScoringMethod = "X-Scoring-Method"
	HeaderAssessmentID  = "X-Assessment-ID"
)

const (
	defaultFeedbackLimit = 50
	maxFeedbackLimit     = 500
)

// FeedbackRequest is the body of a feedback submission.
type FeedbackRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Notes   string `json:"notes"`
}

// FeedbackListResponse is a page of feedback entries.
type FeedbackListResponse struct {
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Feedback []*feedback.Feedback `json:"feedback"`
}

// handleHealth reports the scoring mode chosen at startup and probes
// optional dependencies.
func (s *Server) handleHealth(c *gin.Context) {
	strategy := s.deps.Assessments.Predictor().Strategy()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{
		"status":       status,
		"scoring_mode": strategy.Mode(),
		"timestamp":    time.Now().UTC(),
		"version":      Version,
	}
	if name := strategy.ModelName(); name != "" {
		body["model"] = name
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	c.JSON(code, body)
}

// handlePredict scores a patient record.
func (s *Server) handlePredict(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		s.abortWithError(c, domain.NewMalformedInputError("", "failed to read request body"))
		return
	}

	record, err := domain.DecodePatientRecord(data)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	assessment, err := s.deps.Assessments.Assess(c.Request.Context(), record, middleware.GetRequestID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	result := domain.ScoreResult{Value: assessment.Score, Tier: assessment.Tier, Method: assessment.Method}
	c.Header(HeaderScoringMethod, string(assessment.Method))
	c.Header(HeaderAssessmentID, assessment.ID)
	c.JSON(http.StatusOK, result.Response())
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	assessment, err := s.deps.Assessments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleListAssessments(c *gin.Context) {
	limit, err := queryInt(c, "limit", service.DefaultRecentLimit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	assessments, err := s.deps.Assessments.Recent(c.Request.Context(), limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if assessments == nil {
		assessments = []*domain.Assessment{}
	}
	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.abortWithError(c, errFeedbackDisabled)
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, domain.NewMalformedInputError("outcome", err.Error()))
		return
	}
	outcome, err := feedback.ParseOutcome(req.Outcome)
	if err != nil {
		s.abortWithError(c, domain.NewMalformedInputError("outcome", err.Error()))
		return
	}

	assessment, err := s.deps.Assessments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	fb := feedback.New(assessment, outcome, req.Notes)
	if err := s.deps.Feedback.Save(c.Request.Context(), fb); err != nil {
		s.abortWithError(c, domain.NewInternalError("save feedback", err))
		return
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"outcome":       outcome,
		"concordant":    fb.Concordant,
	}).Info("Outcome feedback recorded")
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.abortWithError(c, errFeedbackDisabled)
		return
	}

	limit, err := queryInt(c, "limit", defaultFeedbackLimit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if limit <= 0 || limit > maxFeedbackLimit {
		limit = defaultFeedbackLimit
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	entries, err := s.deps.Feedback.List(ctx, limit, offset)
	if err != nil {
		s.abortWithError(c, domain.NewInternalError("list feedback", err))
		return
	}
	total, err := s.deps.Feedback.Count(ctx)
	if err != nil {
		s.abortWithError(c, domain.NewInternalError("count feedback", err))
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, FeedbackListResponse{
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Feedback: entries,
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewMalformedInputError(key, "expected an integer")
	}
	return n, nil
}

var errFeedbackDisabled = errors.New("feedback store is not configured")
