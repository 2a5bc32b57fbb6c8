package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appreport "github.com/energyadmin/backend/internal/application/report"
	"github.com/energyadmin/backend/internal/domain/report"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultScanBatchSize = 100
	defaultKeyPrefix     = "dashboard:stats:"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisDashboardCache implements StatsCache using Redis
type RedisDashboardCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	prefix     string
	logger     *zap.Logger
}

// RedisDashboardCacheOption is a functional option for configuring the cache
type RedisDashboardCacheOption func(*RedisDashboardCache)

// WithKeyPrefix sets the key namespace, useful when several deployments share a database
func WithKeyPrefix(prefix string) RedisDashboardCacheOption {
	return func(c *RedisDashboardCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisDashboardCacheOption {
	return func(c *RedisDashboardCache) {
		c.logger = logger
	}
}

// NewRedisDashboardCache connects to Redis and creates the cache
func NewRedisDashboardCache(cfg RedisConfig, opts ...RedisDashboardCacheOption) (*RedisDashboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisDashboardCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisDashboardCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client.
func NewRedisDashboardCacheWithClient(client *redis.Client, opts ...RedisDashboardCacheOption) *RedisDashboardCache {
	c := &RedisDashboardCache{
		client: client,
		prefix: defaultKeyPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// windowKey generates the cache key of a window
func (c *RedisDashboardCache) windowKey(w report.Window) string {
	return fmt.Sprintf("%s%d:%d", c.prefix, w.Start.UnixNano(), w.End.UnixNano())
}

// Get retrieves the dashboard of a window
func (c *RedisDashboardCache) Get(ctx context.Context, window report.Window) (*report.DashboardStats, error) {
	key := c.windowKey(window)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss for dashboard", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard from cache: %w", err)
	}

	var stats report.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal dashboard: %w", err)
	}

	c.logger.Debug("Cache hit for dashboard", zap.String("key", key))
	return &stats, nil
}

// Set stores a dashboard under its window
func (c *RedisDashboardCache) Set(ctx context.Context, stats *report.DashboardStats, ttl time.Duration) error {
	if stats == nil {
		return nil
	}
	key := c.windowKey(stats.Window)

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dashboard in cache: %w", err)
	}

	c.logger.Debug("Cached dashboard",
		zap.String("key", key),
		zap.Duration("ttl", ttl))
	return nil
}

// Invalidate removes every cached dashboard
func (c *RedisDashboardCache) Invalidate(ctx context.Context) error {
	// SCAN instead of KEYS so Redis is never blocked
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, c.prefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("Invalidated dashboard cache", zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases the client if the cache created it
func (c *RedisDashboardCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ appreport.StatsCache = (*RedisDashboardCache)(nil)
