// Package cache keeps recent assessments in memory and, optionally, in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-server/internal/domain"
)

const keyPrefix = "assessment:"

// cachedAssessment is the Redis payload for a cached assessment
type cachedAssessment struct {
	Data      *domain.Assessment `json:"data"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// AssessmentCache is a two-tier cache: an in-process LRU in front of an
// optional Redis instance shared between replicas.
type AssessmentCache struct {
	memory *expirable.LRU[string, *domain.Assessment]
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewAssessmentCache creates the cache. Redis is used only when
// cfg.RedisURL is set, and must answer a ping at construction.
func NewAssessmentCache(cfg domain.CacheConfig, logger *logrus.Logger) (*AssessmentCache, error) {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	size := cfg.MemoryMaxItems
	if size <= 0 {
		size = 1000
	}

	c := &AssessmentCache{
		memory: expirable.NewLRU[string, *domain.Assessment](size, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}

	if cfg.RedisURL == "" {
		return c, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.redis = client
	return c, nil
}

// Get returns a cached assessment. A miss is reported as ok == false.
func (c *AssessmentCache) Get(ctx context.Context, id string) (*domain.Assessment, bool, error) {
	if a, ok := c.memory.Get(id); ok {
		return a, true, nil
	}
	if c.redis == nil {
		return nil, false, nil
	}

	key := keyPrefix + id
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached assessment: %w", err)
	}

	var cached cachedAssessment
	if err := json.Unmarshal(val, &cached); err != nil || cached.Data == nil {
		// Remove corrupted cache entry
		c.logger.WithField("key", key).Debug("Dropping corrupted cached assessment")
		if delErr := c.redis.Del(ctx, key).Err(); delErr != nil {
			c.logger.WithError(delErr).WithField("key", key).Warn("Failed to delete corrupted cache entry")
		}
		return nil, false, nil
	}

	c.memory.Add(id, cached.Data)
	return cached.Data, true, nil
}

// Set stores an assessment in both tiers.
func (c *AssessmentCache) Set(ctx context.Context, a *domain.Assessment) error {
	c.memory.Add(a.ID, a)
	if c.redis == nil {
		return nil
	}

	now := time.Now()
	data, err := json.Marshal(cachedAssessment{
		Data:      a,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}
	return c.redis.Set(ctx, keyPrefix+a.ID, data, c.ttl).Err()
}

// Len returns the number of assessments held in memory.
func (c *AssessmentCache) Len() int {
	return c.memory.Len()
}

// RedisEnabled reports whether the shared tier is configured.
func (c *AssessmentCache) RedisEnabled() bool {
	return c.redis != nil
}

// Ping checks the Redis tier, if any.
func (c *AssessmentCache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (c *AssessmentCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
