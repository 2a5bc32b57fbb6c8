package router

import (
	"github.com/energyadmin/backend/internal/interfaces/http/handler"
)

// LeadRoutes maps the lead API under /leads
func LeadRoutes(h *handler.LeadHandler) *DomainGroup {
	g := NewDomainGroup("leads", "/leads")

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)

	g.GET("/:id/transitions", h.AllowedTransitions)
	g.POST("/:id/transitions", h.Transition)

	g.POST("/:id/contacts", h.RecordContact)
	g.POST("/:id/emails", h.RequestEmail)

	g.POST("/:id/products", h.AddProduct)
	g.DELETE("/:id/products/:productId", h.RemoveProduct)
	g.PUT("/:id/products/:productId/final-value", h.UpdateProductFinalValue)

	g.PUT("/:id/priority", h.SetPriority)
	g.POST("/:id/tags", h.AddTag)

	commission := g.Group("commission", "/:id/commission")
	commission.GET("", h.CalculateCommission)
	commission.PUT("", h.UpdateCommissionTerms)
	commission.POST("/assess", h.AssessCommission)
	commission.POST("/settle", h.SettleCommission)

	return g
}

// DashboardRoutes maps the reporting API under /dashboard
func DashboardRoutes(h *handler.DashboardHandler) *DomainGroup {
	g := NewDomainGroup("dashboard", "/dashboard")
	g.GET("/stats", h.Stats)
	return g
}
