package cache

import (
	"fmt"

	appreport "github.com/energyadmin/backend/internal/application/report"
	"github.com/energyadmin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DashboardCacheFactory creates dashboard caches based on configuration
type DashboardCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DashboardCacheFactoryOption is a functional option for configuring the factory
type DashboardCacheFactoryOption func(*DashboardCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DashboardCacheFactoryOption {
	return func(f *DashboardCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) DashboardCacheFactoryOption {
	return func(f *DashboardCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDashboardCacheFactory creates a new factory
func NewDashboardCacheFactory(cfg config.RedisConfig, opts ...DashboardCacheFactoryOption) *DashboardCacheFactory {
	f := &DashboardCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisCache creates a Redis-backed dashboard cache
func (f *DashboardCacheFactory) CreateRedisCache() (*RedisDashboardCache, error) {
	c, err := NewRedisDashboardCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, WithCacheLogger(f.logger.Named("dashboard_cache")))
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis dashboard cache: %w", err)
	}
	return c, nil
}

// CreateCache returns the Redis cache when Redis is enabled and reachable,
// the in-memory cache otherwise. The returned close function releases the
// Redis connection.
func (f *DashboardCacheFactory) CreateCache() (appreport.StatsCache, func() error, error) {
	noop := func() error { return nil }
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory dashboard cache")
		return NewInMemoryDashboardCache(WithInMemoryLogger(f.logger)), noop, nil
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis dashboard cache", zap.String("addr", f.redisConfig.Addr()))
		return c, c.Close, nil
	}
	if !f.allowInMemoryFallback {
		return nil, noop, fmt.Errorf("Redis required for dashboard cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory dashboard cache. "+
		"Dashboards may be stale across instances.",
		zap.Error(err),
	)
	return NewInMemoryDashboardCache(WithInMemoryLogger(f.logger)), noop, nil
}
