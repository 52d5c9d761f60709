package model

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/diabetes-risk-server/internal/domain"
)

// predictRequest is the model-serving request body.
type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

// predictResponse carries one [P(negative), P(positive)] pair per instance.
type predictResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// RemoteClassifier scores vectors through an external model-serving endpoint.
type RemoteClassifier struct {
	baseURL string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewRemoteClassifier creates a client for the configured endpoint.
// Requests are never retried; a failed call falls back to the rule engine.
func NewRemoteClassifier(cfg domain.RemoteModelConfig, logger *logrus.Logger) *RemoteClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 50
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-server",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RemoteClassifier{
		baseURL: cfg.URL,
		client:  client,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(limit), limit),
		logger:  logger,
	}
}

// Name identifies the endpoint.
func (r *RemoteClassifier) Name() string {
	u, err := url.Parse(r.baseURL)
	if err != nil || u.Host == "" {
		return "remote"
	}
	return "remote:" + u.Host
}

// Ping probes the endpoint's health route.
func (r *RemoteClassifier) Ping(ctx context.Context) error {
	resp, err := r.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("model server health check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("model server health check returned status %d", resp.StatusCode())
	}
	return nil
}

// PredictProba implements Classifier.
func (r *RemoteClassifier) PredictProba(ctx context.Context, features domain.FeatureVector) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.predict(ctx, features)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

func (r *RemoteClassifier) predict(ctx context.Context, features domain.FeatureVector) (float64, error) {
	var body predictResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Instances: [][]float64{features.Slice()}}).
		SetResult(&body).
		Post("/v1/predict")
	if err != nil {
		return 0, fmt.Errorf("model server request failed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("model server returned status %d", resp.StatusCode())
	}

	if len(body.Probabilities) != 1 || len(body.Probabilities[0]) != 2 {
		return 0, fmt.Errorf("model server returned unexpected probability shape")
	}
	return body.Probabilities[0][1], nil
}
