package handler

import (
	"time"

	reportapp "github.com/energyadmin/backend/internal/application/report"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the aggregated lead dashboard
type DashboardHandler struct {
	BaseHandler
	dashboards *reportapp.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboards *reportapp.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Stats handles GET /dashboard/stats?start=&end= (RFC3339, both optional)
func (h *DashboardHandler) Stats(c *gin.Context) {
	start, ok := h.queryTime(c, "start")
	if !ok {
		return
	}
	end, ok := h.queryTime(c, "end")
	if !ok {
		return
	}

	window, err := h.dashboards.ResolveWindow(start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	stats, err := h.dashboards.Stats(c.Request.Context(), window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

func (h *DashboardHandler) queryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+key+": must be an RFC3339 timestamp")
		return nil, false
	}
	return &t, true
}
