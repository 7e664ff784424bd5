package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
)

// Cache keys shared by the services that read or invalidate them.
const (
	cacheKeyDashboard     = "dash:summary"
	cachePatternDashboard = "dash:*"
)

// CacheRepository stores opaque payloads. Get returns appErrors.ErrCacheMiss
// for absent keys.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService keeps JSON encoded read models in a CacheRepository. A nil or
// disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled && repo != nil}
}

func (s *CacheService) active() bool {
	return s != nil && s.enabled
}

// Invalidate drops every key matching pattern. Failures are only logged; the
// entries still expire with their TTL.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.active() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (s *CacheService) load(ctx context.Context, key string, dest interface{}) bool {
	start := time.Now()
	raw, err := s.repo.Get(ctx, key)
	if err == nil {
		if err = json.Unmarshal(raw, dest); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrCacheMiss.Code, appErrors.ErrCacheMiss.Status, "corrupt cache entry")
		}
	}
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CacheService) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err = s.repo.Set(ctx, key, payload, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// cached serves key from the cache or computes it with load and stores the
// result. The boolean reports a cache hit. Cache errors never fail the call.
func cached[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	if s.active() {
		var hit T
		if s.load(ctx, key, &hit) {
			return hit, true, nil
		}
	}
	out, err := load(ctx)
	if err != nil {
		return out, false, err
	}
	if s.active() {
		s.store(ctx, key, out, ttl)
	}
	return out, false, nil
}
