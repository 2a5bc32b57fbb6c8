package report

import (
	"context"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
)

// CacheInvalidationHandler drops cached dashboards whenever a lead changes
type CacheInvalidationHandler struct {
	dashboards *DashboardService
}

// NewCacheInvalidationHandler creates a new CacheInvalidationHandler
func NewCacheInvalidationHandler(dashboards *DashboardService) *CacheInvalidationHandler {
	return &CacheInvalidationHandler{dashboards: dashboards}
}

// Handle invalidates the cache
func (h *CacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.dashboards.Invalidate(ctx)
}

// EventTypes returns every lead event type
func (h *CacheInvalidationHandler) EventTypes() []string {
	return lead.AllEventTypes
}

var _ shared.EventHandler = (*CacheInvalidationHandler)(nil)
