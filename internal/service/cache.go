package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// CacheService defines the interface for caching operations
type CacheService interface {
	// User cache operations
	CacheUser(ctx context.Context, user *domain.User) error
	GetCachedUser(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error)
	InvalidateUserCache(ctx context.Context, userID uuid.UUID) error

	// Repository stats, keyed by repository URL. Missing entries are
	// absent from the returned map.
	GetCachedStats(ctx context.Context, urls []string) (map[string]*domain.RepositoryStats, error)
	CacheStats(ctx context.Context, url string, stats *domain.RepositoryStats) error

	// CheckRateLimit counts a hit for key in a fixed window. When the limit
	// is exceeded it reports false and the time until the window resets.
	CheckRateLimit(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, time.Duration, error)

	Health(ctx context.Context) error
}

// cacheServiceImpl provides caching on top of Redis
type cacheServiceImpl struct {
	redisClient *repository.RedisClient
	metrics     *utils.MetricsCollector
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *repository.RedisClient, metrics *utils.MetricsCollector) CacheService {
	return &cacheServiceImpl{
		redisClient: redisClient,
		metrics:     metrics,
	}
}

const (
	userCachePrefix  = "user:"
	userCacheTTL     = 30 * time.Minute
	statsCachePrefix = "ghstats:"
	statsCacheTTL    = 10 * time.Minute
	rateLimitPrefix  = "ratelimit:"
)

// CacheUser caches user information
func (c *cacheServiceImpl) CacheUser(ctx context.Context, user *domain.User) error {
	key := userCachePrefix + user.ID.String()
	return c.redisClient.Set(ctx, key, user.ToResponse(), userCacheTTL)
}

// GetCachedUser retrieves a cached user
func (c *cacheServiceImpl) GetCachedUser(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	key := userCachePrefix + userID.String()
	var user domain.UserResponse
	if err := c.redisClient.Get(ctx, key, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// InvalidateUserCache removes user from cache
func (c *cacheServiceImpl) InvalidateUserCache(ctx context.Context, userID uuid.UUID) error {
	return c.redisClient.Del(ctx, userCachePrefix+userID.String())
}

func (c *cacheServiceImpl) GetCachedStats(ctx context.Context, urls []string) (map[string]*domain.RepositoryStats, error) {
	if len(urls) == 0 {
		return map[string]*domain.RepositoryStats{}, nil
	}

	keys := make([]string, len(urls))
	for i, u := range urls {
		keys[i] = statsCachePrefix + u
	}

	raw, err := c.redisClient.MGetRaw(ctx, keys...)
	if err != nil {
		return nil, err
	}

	found := make(map[string]*domain.RepositoryStats, len(urls))
	for i, data := range raw {
		if data == nil {
			c.recordStatsCache(false)
			continue
		}
		var stats domain.RepositoryStats
		if err := json.Unmarshal(data, &stats); err != nil {
			utils.Warn("dropping unreadable stats cache entry", "url", urls[i], "error", err.Error())
			c.recordStatsCache(false)
			continue
		}
		c.recordStatsCache(true)
		found[urls[i]] = &stats
	}
	return found, nil
}

func (c *cacheServiceImpl) CacheStats(ctx context.Context, url string, stats *domain.RepositoryStats) error {
	return c.redisClient.Set(ctx, statsCachePrefix+url, stats, statsCacheTTL)
}

func (c *cacheServiceImpl) recordStatsCache(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordStatsCache(hit)
	}
}

// CheckRateLimit checks if a client has exceeded rate limits
func (c *cacheServiceImpl) CheckRateLimit(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, time.Duration, error) {
	count, ttl, err := c.redisClient.IncrWindow(ctx, rateLimitPrefix+key, window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(maxRequests) {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Health checks Redis connectivity
func (c *cacheServiceImpl) Health(ctx context.Context) error {
	return c.redisClient.Ping(ctx)
}
