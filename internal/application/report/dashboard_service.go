package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/report"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long a dashboard may be served from cache
const DefaultCacheTTL = time.Minute

// LeadSnapshotter supplies a consistent copy of every lead
type LeadSnapshotter interface {
	Snapshot(ctx context.Context) ([]*lead.Lead, error)
}

// StatsCache stores computed dashboards keyed by window.
// A miss is reported as (nil, nil).
type StatsCache interface {
	Get(ctx context.Context, window report.Window) (*report.DashboardStats, error)
	Set(ctx context.Context, stats *report.DashboardStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// DashboardService computes dashboard figures over a lead snapshot
type DashboardService struct {
	leads    LeadSnapshotter
	cache    StatsCache
	ttl      time.Duration
	currency valueobject.Currency
	clock    func() time.Time
	logger   *zap.Logger

	// cacheMu orders cache writes against invalidations; generation counts
	// invalidations so a dashboard computed before one is never stored.
	cacheMu    sync.Mutex
	generation uint64
}

// DashboardOption configures a DashboardService
type DashboardOption func(*DashboardService)

// WithCache enables caching of computed dashboards
func WithCache(cache StatsCache, ttl time.Duration) DashboardOption {
	return func(s *DashboardService) {
		s.cache = cache
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCurrency sets the reporting currency
func WithCurrency(currency valueobject.Currency) DashboardOption {
	return func(s *DashboardService) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) DashboardOption {
	return func(s *DashboardService) {
		s.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) DashboardOption {
	return func(s *DashboardService) {
		s.logger = logger
	}
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(leads LeadSnapshotter, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		leads:    leads,
		ttl:      DefaultCacheTTL,
		currency: valueobject.DefaultCurrency,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveWindow fills in a missing bound with the current calendar month and
// rejects empty or inverted windows.
func (s *DashboardService) ResolveWindow(start, end *time.Time) (report.Window, error) {
	now := s.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	w := report.Window{Start: monthStart, End: monthStart.AddDate(0, 1, 0)}
	if start != nil {
		w.Start = start.UTC()
	}
	if end != nil {
		w.End = end.UTC()
	}
	if !w.Start.Before(w.End) {
		return report.Window{}, shared.NewValidationError("Window start must be before its end")
	}
	return w, nil
}

// Stats returns the dashboard for the window. Cache failures are logged and
// the dashboard is computed from the snapshot instead.
func (s *DashboardService) Stats(ctx context.Context, window report.Window) (*report.DashboardStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, window)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	generation := s.currentGeneration()
	leads, err := s.leads.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot leads: %w", err)
	}
	stats := report.BuildDashboard(leads, window, s.currency, s.clock())
	s.logger.Debug("dashboard computed",
		zap.Int("leads", stats.TotalLeads),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
	)

	if s.cache != nil {
		s.store(ctx, &stats, generation)
	}
	return &stats, nil
}

func (s *DashboardService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// store caches stats unless an invalidation ran since its snapshot was taken
func (s *DashboardService) store(ctx context.Context, stats *report.DashboardStats, generation uint64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != generation {
		s.logger.Debug("dashboard outdated by a lead change, not cached")
		return
	}
	if err := s.cache.Set(ctx, stats, s.ttl); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached dashboard. Dashboards still being computed
// from an earlier snapshot are not cached afterwards.
func (s *DashboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	return s.cache.Invalidate(ctx)
}
