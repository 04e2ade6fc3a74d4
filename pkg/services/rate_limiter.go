// Package services implements the engine's business logic: rate limiting,
// source discovery, question generation, assistance, agreements, review, and
// the contribution lifecycle.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/config"
)

// RateLimitResult reports the outcome of one quota check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// RateLimiter enforces per-user daily caps on paid AI call sites.
type RateLimiter interface {
	// CheckAndConsume atomically consumes one unit of quota for the
	// (user, provider, feature, UTC day) tuple and reports whether the call
	// may proceed. The unit is consumed even when the answer is no, and is
	// never refunded if the downstream call fails.
	CheckAndConsume(ctx context.Context, userID, provider, feature string) (*RateLimitResult, error)
}

// CounterStore is the atomic daily counter behind the rate limiter.
type CounterStore interface {
	// IncrementDaily atomically increments the counter for key and returns
	// the post-increment value, setting expiry to ttl on first touch.
	IncrementDaily(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps a redis client as a CounterStore.
func NewRedisCounterStore(client *redis.Client) CounterStore {
	return &redisCounterStore{client: client}
}

func (s *redisCounterStore) IncrementDaily(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the original midnight expiry when the key already exists.
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return incr.Val(), nil
}

var _ CounterStore = (*redisCounterStore)(nil)

type rateLimiter struct {
	store  CounterStore
	limits *config.LimitsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter backed by the given counter store.
func NewRateLimiter(store CounterStore, limits *config.LimitsConfig, logger *zap.Logger) RateLimiter {
	return &rateLimiter{
		store:  store,
		limits: limits,
		logger: logger.Named("rate_limiter"),
		now:    time.Now,
	}
}

var _ RateLimiter = (*rateLimiter)(nil)

func (l *rateLimiter) CheckAndConsume(ctx context.Context, userID, provider, feature string) (*RateLimitResult, error) {
	now := l.now().UTC()
	resetAt := nextUTCMidnight(now)
	limit := l.limits.DailyLimit(feature)

	key := fmt.Sprintf("ratelimit:%s:%s:%s:%s", userID, provider, feature, now.Format("20060102"))

	count, err := l.store.IncrementDaily(ctx, key, resetAt.Sub(now))
	if err != nil {
		// Fail closed: an unreachable counter store must not grant
		// unmetered AI calls.
		l.logger.Error("counter store failure, denying request",
			zap.String("key", key),
			zap.Error(err))
		return &RateLimitResult{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt},
			fmt.Errorf("rate limit store: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(limit) {
		l.logger.Info("daily quota exhausted",
			zap.String("user_id", userID),
			zap.String("provider", provider),
			zap.String("feature", feature),
			zap.Int64("count", count),
			zap.Int("limit", limit))
		return &RateLimitResult{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt},
			&apperrors.RateLimitError{Provider: provider, Feature: feature, Limit: limit, ResetAt: resetAt}
	}

	return &RateLimitResult{Allowed: true, Limit: limit, Remaining: remaining, ResetAt: resetAt}, nil
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
