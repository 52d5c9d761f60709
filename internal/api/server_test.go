package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-server/internal/cache"
	"github.com/diabetes-risk-server/internal/config"
	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/feedback"
	"github.com/diabetes-risk-server/internal/logging"
	"github.com/diabetes-risk-server/internal/service"
)

const (
	allSymptoms = `{"increasedThirst": true, "frequentUrination": true, "extremeHunger": true,
		"unexplainedWeightLoss": true, "fatigue": true, "irritability": true,
		"blurredVision": true, "slowHealingSores": true, "frequentInfections": true}`
	allRiskFactors = `{"familyHistory": true, "overweight": true, "inactiveLifestyle": true,
		"highBloodPressure": true, "abnormalCholesterol": true}`
)

func record(symptoms, riskFactors, glucose string) string {
	body := `{"personalInfo": {"age": 45, "weight": 80, "height": 175}, "symptoms": ` + symptoms +
		`, "riskFactors": ` + riskFactors
	if glucose != "" {
		body += `, "bloodGlucose": ` + glucose
	}
	return body + "}"
}

// memoryRepo is an in-memory AssessmentRepository.
type memoryRepo struct {
	mu    sync.Mutex
	items []*domain.Assessment
}

func (r *memoryRepo) Save(_ context.Context, a *domain.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, a)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) ListRecent(_ context.Context, limit int) ([]*domain.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Assessment
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.items[i])
	}
	return out, nil
}

type testEnv struct {
	server   *Server
	feedback feedback.Store
}

func newTestEnv(t *testing.T, repo domain.AssessmentRepository, withFeedback bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := config.NewManager()
	require.NoError(t, err)
	logger := logging.Discard()

	assessmentCache, err := cache.NewAssessmentCache(domain.CacheConfig{}, logger)
	require.NoError(t, err)

	engine := service.NewRuleEngine(service.DefaultRuleWeights())
	predictor := service.NewPredictor(service.NewRuleStrategy(engine), logger)

	deps := Dependencies{
		Assessments: service.NewAssessmentService(predictor, repo, assessmentCache, logger),
	}
	env := &testEnv{}
	if withFeedback {
		store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		deps.Feedback = store
		env.feedback = store
	}

	env.server = NewServer(manager, deps, logger)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestPredict(t *testing.T) {
	env := newTestEnv(t, nil, false)

	tests := []struct {
		name      string
		body      string
		score     float64
		riskLevel string
	}{
		{"All symptoms and risk factors", record(allSymptoms, allRiskFactors, ""), 80, "High risk"},
		{"Nothing reported", record("{}", "{}", "90"), 0, "Low risk"},
		{"All symptoms with high glucose", record(allSymptoms, "{}", "250"), 60, "Moderate risk"},
		{"Glucose at boundary", record("{}", "{}", "200"), 10, "Low risk"},
	}

	for _, tt := range tests {
		for _, path := range []string{"/predict", "/api/v1/predict"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				w := env.do(http.MethodPost, path, tt.body)

				require.Equal(t, http.StatusOK, w.Code, w.Body.String())
				var resp domain.PredictionResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.score, resp.Prediction)
				assert.Equal(t, tt.riskLevel, resp.RiskLevel)
				assert.Equal(t, "fallback", w.Header().Get(HeaderScoringMethod))
				assert.Len(t, w.Header().Get(HeaderAssessmentID), 36)
				assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			})
		}
	}
}

func TestPredict_Malformed(t *testing.T) {
	env := newTestEnv(t, nil, false)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"Missing symptoms", `{"personalInfo": {}, "riskFactors": {}}`, "symptoms"},
		{"Non-numeric age", `{"personalInfo": {"age": "old"}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.age"},
		{"NaN age", `{"personalInfo": {"age": "NaN"}, "symptoms": {}, "riskFactors": {}}`, "personalInfo.age"},
		{"Infinite glucose", `{"personalInfo": {}, "symptoms": {}, "riskFactors": {}, "bloodGlucose": "Infinity"}`, "bloodGlucose"},
		{"Invalid JSON", `{"personalInfo"`, ""},
		{"Empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/predict", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			apiErr := decodeAPIError(t, w)
			assert.Equal(t, domain.ErrCodeMalformedInput, apiErr.Code)
			assert.NotEmpty(t, apiErr.RequestID)
			if tt.field != "" {
				assert.Contains(t, apiErr.Message, tt.field)
			}
		})
	}
}

func TestGetAssessment(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w := env.do(http.MethodPost, "/api/v1/predict", record(allSymptoms, "{}", ""))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(HeaderAssessmentID)

	w = env.do(http.MethodGet, "/api/v1/assessments/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	var a domain.Assessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, id, a.ID)
	assert.Equal(t, 40.0, a.Score)
	assert.Equal(t, domain.RiskModerate, a.Tier)
	assert.Equal(t, domain.MethodFallback, a.Method)

	w = env.do(http.MethodGet, "/api/v1/assessments/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrCodeNotFound, decodeAPIError(t, w).Code)
}

func TestListAssessments(t *testing.T) {
	t.Run("Without database", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		w := env.do(http.MethodGet, "/api/v1/assessments", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, domain.ErrCodeUnavailable, decodeAPIError(t, w).Code)
	})

	t.Run("With repository", func(t *testing.T) {
		env := newTestEnv(t, &memoryRepo{}, false)
		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/predict", record("{}", "{}", "")).Code)
		}

		w := env.do(http.MethodGet, "/api/v1/assessments?limit=2", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Assessments []domain.Assessment `json:"assessments"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Assessments, 2)
	})

	t.Run("Bad limit", func(t *testing.T) {
		env := newTestEnv(t, &memoryRepo{}, false)

		w := env.do(http.MethodGet, "/api/v1/assessments?limit=ten", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t, nil, true)

	w := env.do(http.MethodPost, "/api/v1/predict", record(allSymptoms, allRiskFactors, ""))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(HeaderAssessmentID)

	w = env.do(http.MethodPost, "/api/v1/assessments/"+id+"/feedback", `{"outcome": "diabetes", "notes": "HbA1c 7.4%"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var fb feedback.Feedback
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fb))
	assert.Equal(t, id, fb.AssessmentID)
	assert.Equal(t, 80.0, fb.PredictedScore)
	assert.True(t, fb.Concordant)

	w = env.do(http.MethodGet, "/api/v1/feedback", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list FeedbackListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Feedback, 1)
	assert.Equal(t, feedback.OutcomeDiabetes, list.Feedback[0].Outcome)

	var export bytes.Buffer
	require.NoError(t, env.feedback.ExportJSON(context.Background(), &export))
	assert.Contains(t, export.String(), id)
}

func TestNonFiniteInputIsNeverStored(t *testing.T) {
	env := newTestEnv(t, nil, true)

	w := env.do(http.MethodPost, "/api/v1/predict", `{"personalInfo": {"age": "NaN"}, "symptoms": {}, "riskFactors": {}}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, w.Header().Get(HeaderAssessmentID))

	w = env.do(http.MethodPost, "/api/v1/predict", `{"personalInfo": {"age": "52", "weight": "-1"}, "symptoms": {}, "riskFactors": {}, "bloodGlucose": "210"}`)
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(HeaderAssessmentID)
	require.NotEmpty(t, id)

	w = env.do(http.MethodGet, "/api/v1/assessments/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, id, a.ID)

	w = env.do(http.MethodPost, "/api/v1/assessments/"+id+"/feedback", `{"outcome": "prediabetes"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestFeedback_Errors(t *testing.T) {
	env := newTestEnv(t, nil, true)
	w := env.do(http.MethodPost, "/api/v1/predict", record("{}", "{}", ""))
	id := w.Header().Get(HeaderAssessmentID)

	w = env.do(http.MethodPost, "/api/v1/assessments/"+id+"/feedback", `{"outcome": "type1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(http.MethodPost, "/api/v1/assessments/"+id+"/feedback", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(http.MethodPost, "/api/v1/assessments/00000000-0000-0000-0000-000000000000/feedback", `{"outcome": "diabetes"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	disabled := newTestEnv(t, nil, false)
	w = disabled.do(http.MethodGet, "/api/v1/feedback", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "fallback", body["scoring_mode"])
	assert.NotContains(t, body, "model")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	env.server.deps.Checks = map[string]HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	}
	w = env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Malformed", domain.NewMalformedInputError("symptoms", "field required"), http.StatusUnprocessableEntity, domain.ErrCodeMalformedInput},
		{"Not found", domain.ErrNotFound, http.StatusNotFound, domain.ErrCodeNotFound},
		{"History disabled", service.ErrHistoryDisabled, http.StatusServiceUnavailable, domain.ErrCodeUnavailable},
		{"Internal", domain.NewInternalError("predict", errors.New("boom")), http.StatusInternalServerError, domain.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotContains(t, message, "boom")
		})
	}
}
