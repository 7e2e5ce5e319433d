package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/metrics"
)

const (
	reportVocabulary  = "vocabulary"
	reportLeaderboard = "leaderboard"
)

// reportCache is a cache-aside wrapper around one report kind. Cache
// failures are logged and never fail the request.
type reportCache struct {
	store  cache.CacheService
	ttl    time.Duration
	report string
	logger *slog.Logger
}

func newReportCache(store cache.CacheService, ttl time.Duration, report string, logger *slog.Logger) *reportCache {
	if store == nil {
		store = cache.NewNoopCache()
	}
	return &reportCache{store: store, ttl: ttl, report: report, logger: logger}
}

func (c *reportCache) key(teacherID string, parts ...string) string {
	return cache.Key(c.report, append([]string{teacherID}, parts...)...)
}

// getOrLoad returns the cached value under key or stores the result of load.
func getOrLoad[T any](ctx context.Context, c *reportCache, key string, load func() (*T, error)) (*T, error) {
	var cached T
	err := c.store.Get(ctx, key, &cached)
	switch {
	case err == nil:
		metrics.RecordCacheHit(c.report)
		return &cached, nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.RecordCacheMiss(c.report)
	default:
		metrics.RecordCacheError(c.report)
		c.logger.WarnContext(ctx, "Report cache read failed", "report", c.report, "key", key, "error", err)
	}

	value, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Report cache write failed", "report", c.report, "key", key, "error", err)
	}
	return value, nil
}

func (c *reportCache) invalidateTeacher(ctx context.Context, teacherID string) error {
	return c.store.DeletePattern(ctx, cache.TeacherPattern(c.report, teacherID))
}
