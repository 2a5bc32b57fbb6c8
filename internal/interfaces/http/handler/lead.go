package handler

import (
	leadapp "github.com/energyadmin/backend/internal/application/lead"
	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// LeadHandler exposes the lead service over HTTP
type LeadHandler struct {
	BaseHandler
	leadService *leadapp.Service
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(leadService *leadapp.Service) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// Create handles POST /leads
func (h *LeadHandler) Create(c *gin.Context) {
	var req leadapp.LeadIntake
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Actor == "" {
		req.Actor = middleware.GetActor(c)
	}

	resp, err := h.leadService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /leads
func (h *LeadHandler) List(c *gin.Context) {
	var req leadapp.ListLeadsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	items, total, err := h.leadService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := effectivePage(req)
	h.SuccessWithMeta(c, items, total, page, pageSize)
}

// effectivePage mirrors the defaults the service applies to the list filter
func effectivePage(req leadapp.ListLeadsRequest) (int, int) {
	defaults := shared.DefaultFilter()
	page, pageSize := defaults.Page, defaults.PageSize
	if req.Page > 0 {
		page = req.Page
	}
	if req.PageSize > 0 {
		pageSize = req.PageSize
	}
	return page, pageSize
}

// Get handles GET /leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.leadService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AllowedTransitions handles GET /leads/:id/transitions
func (h *LeadHandler) AllowedTransitions(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.leadService.AllowedTransitions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Transition handles POST /leads/:id/transitions
func (h *LeadHandler) Transition(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.Transition(c.Request.Context(), id, lead.Status(req.Status), middleware.GetActor(c), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordContact handles POST /leads/:id/contacts
func (h *LeadHandler) RecordContact(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.ContactRecord
	if !h.BindJSON(c, &req) {
		return
	}
	req.Actor = middleware.GetActor(c)

	resp, err := h.leadService.RecordContact(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RequestEmail handles POST /leads/:id/emails
func (h *LeadHandler) RequestEmail(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.EmailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.RequestEmail(c.Request.Context(), id, req.EmailID, req.Template, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// AddProduct handles POST /leads/:id/products
func (h *LeadHandler) AddProduct(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.ProductInput
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.AddProduct(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RemoveProduct handles DELETE /leads/:id/products/:productId
func (h *LeadHandler) RemoveProduct(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.ParamUUID(c, "productId")
	if !ok {
		return
	}

	resp, err := h.leadService.RemoveProduct(c.Request.Context(), id, productID, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateProductFinalValue handles PUT /leads/:id/products/:productId/final-value
func (h *LeadHandler) UpdateProductFinalValue(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.ParamUUID(c, "productId")
	if !ok {
		return
	}
	var req leadapp.FinalValueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.UpdateProductFinalValue(c.Request.Context(), id, productID, req.FinalValue, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetPriority handles PUT /leads/:id/priority
func (h *LeadHandler) SetPriority(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.PriorityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.SetPriority(c.Request.Context(), id, lead.Priority(req.Priority), middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddTag handles POST /leads/:id/tags
func (h *LeadHandler) AddTag(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.TagRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.AddTag(c.Request.Context(), id, req.Tag, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateCommissionTerms handles PUT /leads/:id/commission
func (h *LeadHandler) UpdateCommissionTerms(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.CommissionTermsInput
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.UpdateCommissionTerms(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CalculateCommission handles GET /leads/:id/commission
func (h *LeadHandler) CalculateCommission(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.leadService.CalculateCommission(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AssessCommission handles POST /leads/:id/commission/assess
func (h *LeadHandler) AssessCommission(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.leadService.AssessCommission(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SettleCommission handles POST /leads/:id/commission/settle. The body is optional.
func (h *LeadHandler) SettleCommission(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req leadapp.SettleCommissionRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.leadService.SettleCommission(c.Request.Context(), id, req.PaymentDate, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
