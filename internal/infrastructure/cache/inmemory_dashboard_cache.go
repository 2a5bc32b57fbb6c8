package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appreport "github.com/energyadmin/backend/internal/application/report"
	"github.com/energyadmin/backend/internal/domain/report"
	"go.uber.org/zap"
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryDashboardCache implements StatsCache inside the process.
// It serves single-instance deployments that run without Redis.
type InMemoryDashboardCache struct {
	mu      sync.RWMutex
	entries map[report.Window]*cacheEntry[report.DashboardStats]
	clock   func() time.Time
	logger  *zap.Logger

	hits   int64
	misses int64
}

// InMemoryDashboardCacheOption is a functional option for configuring the cache
type InMemoryDashboardCacheOption func(*InMemoryDashboardCache)

// WithInMemoryClock overrides the time source used for expiry
func WithInMemoryClock(clock func() time.Time) InMemoryDashboardCacheOption {
	return func(c *InMemoryDashboardCache) {
		c.clock = clock
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryDashboardCacheOption {
	return func(c *InMemoryDashboardCache) {
		c.logger = logger
	}
}

// NewInMemoryDashboardCache creates a new in-memory dashboard cache
func NewInMemoryDashboardCache(opts ...InMemoryDashboardCacheOption) *InMemoryDashboardCache {
	c := &InMemoryDashboardCache{
		entries: make(map[report.Window]*cacheEntry[report.DashboardStats]),
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalize drops the location so equal instants share a key
func normalize(w report.Window) report.Window {
	return report.Window{Start: w.Start.UTC(), End: w.End.UTC()}
}

// Get retrieves the dashboard of a window
func (c *InMemoryDashboardCache) Get(ctx context.Context, window report.Window) (*report.DashboardStats, error) {
	key := normalize(window)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && !entry.isExpired(c.clock()) {
		atomic.AddInt64(&c.hits, 1)
		copied := *entry.value
		return &copied, nil
	}
	if ok {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a dashboard under its window
func (c *InMemoryDashboardCache) Set(ctx context.Context, stats *report.DashboardStats, ttl time.Duration) error {
	if stats == nil {
		return nil
	}
	copied := *stats
	c.mu.Lock()
	c.entries[normalize(stats.Window)] = &cacheEntry[report.DashboardStats]{
		value:     &copied,
		expiresAt: c.clock().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Invalidate removes every cached dashboard
func (c *InMemoryDashboardCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[report.Window]*cacheEntry[report.DashboardStats])
	c.mu.Unlock()

	c.logger.Debug("Invalidated in-memory dashboard cache", zap.Int("deleted_count", n))
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryDashboardCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries in the cache
func (c *InMemoryDashboardCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ appreport.StatsCache = (*InMemoryDashboardCache)(nil)
