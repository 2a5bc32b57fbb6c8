package lead

import (
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// LeadIntake is the payload intake sources submit to create a lead
type LeadIntake struct {
	Contact      ContactInput          `json:"contact" binding:"required"`
	Source       SourceInput           `json:"source" binding:"required"`
	Commission   *CommissionTermsInput `json:"commission"`
	Priority     string                `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Currency     string                `json:"currency" binding:"omitempty,len=3"`
	Products     []ProductInput        `json:"products" binding:"omitempty,dive"`
	Notes        []string              `json:"notes"`
	Tags         []string              `json:"tags"`
	NextFollowUp *time.Time            `json:"nextFollowUp"`
	Actor        string                `json:"actor"`
}

// ContactInput carries the contact data of a new lead
type ContactInput struct {
	FirstName string       `json:"firstName" binding:"required,max=100"`
	LastName  string       `json:"lastName" binding:"required,max=100"`
	Email     string       `json:"email" binding:"required,email,max=254"`
	Phone     string       `json:"phone" binding:"omitempty,max=30"`
	Address   AddressInput `json:"address"`
}

// AddressInput is a postal address. Only the city is required.
type AddressInput struct {
	Street     string `json:"street" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	PostalCode string `json:"postalCode" binding:"max=12"`
	State      string `json:"state" binding:"max=100"`
	Country    string `json:"country" binding:"max=100"`
}

// SourceInput describes where a lead came from
type SourceInput struct {
	Type            string          `json:"type" binding:"required"`
	SourceID        string          `json:"sourceId" binding:"max=100"`
	SourceName      string          `json:"sourceName" binding:"max=200"`
	AcquisitionCost decimal.Decimal `json:"acquisitionCost"`
	AffiliateCode   string          `json:"affiliateCode" binding:"max=100"`
	CampaignID      string          `json:"campaignId" binding:"max=100"`
}

// CommissionTermsInput sets the commission agreement of a lead
type CommissionTermsInput struct {
	SalespersonID   string           `json:"salespersonId" binding:"max=100"`
	SalespersonRate *decimal.Decimal `json:"salespersonRate"`
	AffiliateID     string           `json:"affiliateId" binding:"max=100"`
	AffiliateRate   *decimal.Decimal `json:"affiliateRate"`
	LeadCost        *decimal.Decimal `json:"leadCost"`
}

// ProductInput is a line item to add to a lead
type ProductInput struct {
	Name           string            `json:"name" binding:"required,min=1,max=200"`
	Category       string            `json:"category" binding:"required"`
	Type           string            `json:"type" binding:"max=100"`
	EstimatedValue decimal.Decimal   `json:"estimatedValue"`
	Specifications map[string]string `json:"specifications"`
}

// TransitionRequest asks for a status change
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// ContactRecord describes a contact entry. Actor is set by the caller, not the payload.
type ContactRecord struct {
	Action       string            `json:"action" binding:"required"`
	Description  string            `json:"description" binding:"max=2000"`
	Details      map[string]string `json:"details"`
	NextFollowUp *time.Time        `json:"nextFollowUp"`
	Actor        string            `json:"-"`
}

// EmailRequest records that an email was requested from the notification service
type EmailRequest struct {
	EmailID  string `json:"emailId" binding:"required,max=100"`
	Template string `json:"template" binding:"max=100"`
}

// FinalValueRequest records the realized value of a line item
type FinalValueRequest struct {
	FinalValue decimal.Decimal `json:"finalValue"`
}

// PriorityRequest changes the priority
type PriorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

// TagRequest adds a tag
type TagRequest struct {
	Tag string `json:"tag" binding:"required,max=50"`
}

// SettleCommissionRequest marks the commission as paid
type SettleCommissionRequest struct {
	PaymentDate *time.Time `json:"paymentDate"`
}

// ListLeadsRequest holds list query parameters
type ListLeadsRequest struct {
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size" binding:"omitempty,max=100"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search        string     `form:"search"`
	Statuses      []string   `form:"status"`
	Source        string     `form:"source"`
	Priority      string     `form:"priority"`
	SalespersonID string     `form:"salesperson_id"`
	Tag           string     `form:"tag"`
	CreatedFrom   *time.Time `form:"created_from" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo     *time.Time `form:"created_to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ==================== Responses ====================

// LeadResponse is the full representation of a lead
type LeadResponse struct {
	ID                  uuid.UUID              `json:"id"`
	Contact             ContactResponse        `json:"contact"`
	Source              SourceResponse         `json:"source"`
	Commission          CommissionResponse     `json:"commission"`
	Status              StatusResponse         `json:"status"`
	Priority            string                 `json:"priority"`
	Products            []ProductResponse      `json:"products"`
	TotalEstimatedValue decimal.Decimal        `json:"totalEstimatedValue"`
	TotalFinalValue     *decimal.Decimal       `json:"totalFinalValue,omitempty"`
	Currency            string                 `json:"currency"`
	LastContact         *time.Time             `json:"lastContact,omitempty"`
	NextFollowUp        *time.Time             `json:"nextFollowUp,omitempty"`
	ConversionDate      *time.Time             `json:"conversionDate,omitempty"`
	History             []HistoryEntryResponse `json:"history"`
	Notes               []string               `json:"notes"`
	Tags                []string               `json:"tags"`
	AppointmentIDs      []string               `json:"appointmentIds"`
	ProposalIDs         []string               `json:"proposalIds"`
	InvoiceIDs          []string               `json:"invoiceIds"`
	EmailIDs            []string               `json:"emailIds"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
	Version             int                    `json:"version"`
}

// LeadListItemResponse is the list representation of a lead
type LeadListItemResponse struct {
	ID                  uuid.UUID        `json:"id"`
	FullName            string           `json:"fullName"`
	Email               string           `json:"email"`
	City                string           `json:"city"`
	Source              string           `json:"source"`
	Status              string           `json:"status"`
	Priority            string           `json:"priority"`
	SalespersonID       string           `json:"salespersonId,omitempty"`
	TotalEstimatedValue decimal.Decimal  `json:"totalEstimatedValue"`
	TotalFinalValue     *decimal.Decimal `json:"totalFinalValue,omitempty"`
	Currency            string           `json:"currency"`
	Tags                []string         `json:"tags"`
	LastContact         *time.Time       `json:"lastContact,omitempty"`
	NextFollowUp        *time.Time       `json:"nextFollowUp,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// ContactResponse is the contact section of a lead
type ContactResponse struct {
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Address   AddressInput `json:"address"`
}

// SourceResponse is the source attribution of a lead
type SourceResponse struct {
	Type            string          `json:"type"`
	SourceID        string          `json:"sourceId,omitempty"`
	SourceName      string          `json:"sourceName,omitempty"`
	AcquisitionCost decimal.Decimal `json:"acquisitionCost"`
	AffiliateCode   string          `json:"affiliateCode,omitempty"`
	CampaignID      string          `json:"campaignId,omitempty"`
}

// CommissionResponse is the commission section of a lead
type CommissionResponse struct {
	SalespersonID      string           `json:"salespersonId,omitempty"`
	SalespersonRate    *decimal.Decimal `json:"salespersonRate,omitempty"`
	AffiliateID        string           `json:"affiliateId,omitempty"`
	AffiliateRate      *decimal.Decimal `json:"affiliateRate,omitempty"`
	LeadCost           *decimal.Decimal `json:"leadCost,omitempty"`
	TotalCommissionDue *decimal.Decimal `json:"totalCommissionDue,omitempty"`
	CommissionPaid     bool             `json:"commissionPaid"`
	PaymentDate        *time.Time       `json:"paymentDate,omitempty"`
}

// StatusResponse is the status section of a lead
type StatusResponse struct {
	Current     string    `json:"current"`
	LastChanged time.Time `json:"lastChanged"`
	ChangedBy   string    `json:"changedBy"`
	Reason      string    `json:"reason,omitempty"`
}

// ProductResponse is a line item
type ProductResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Category       string            `json:"category"`
	Type           string            `json:"type,omitempty"`
	EstimatedValue decimal.Decimal   `json:"estimatedValue"`
	FinalValue     *decimal.Decimal  `json:"finalValue,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// HistoryEntryResponse is one audit entry
type HistoryEntryResponse struct {
	ID             uuid.UUID         `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	Action         string            `json:"action"`
	Description    string            `json:"description"`
	PerformedBy    string            `json:"performedBy"`
	PreviousStatus string            `json:"previousStatus,omitempty"`
	NewStatus      string            `json:"newStatus,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
}

// AllowedTransitionsResponse lists the legal next statuses of a lead
type AllowedTransitionsResponse struct {
	LeadID   uuid.UUID `json:"leadId"`
	Current  string    `json:"current"`
	Terminal bool      `json:"terminal"`
	Allowed  []string  `json:"allowed"`
}

// CommissionBreakdownResponse is the calculator result for a lead
type CommissionBreakdownResponse struct {
	LeadID              uuid.UUID               `json:"leadId"`
	BaseValue           decimal.Decimal         `json:"baseValue"`
	SalesCommission     decimal.Decimal         `json:"salesCommission"`
	AffiliateCommission decimal.Decimal         `json:"affiliateCommission"`
	TotalCommission     decimal.Decimal         `json:"totalCommission"`
	NetRevenue          decimal.Decimal         `json:"netRevenue"`
	Currency            string                  `json:"currency"`
	MinorUnits          lead.MinorUnitBreakdown `json:"minorUnits"`
	UsesFinalValue      bool                    `json:"usesFinalValue"`
}

// ==================== Mapping ====================

// ToLeadResponse converts a domain lead to its response DTO
func ToLeadResponse(l *lead.Lead) LeadResponse {
	products := make([]ProductResponse, len(l.Products))
	for i, p := range l.Products {
		products[i] = ToProductResponse(p)
	}
	entries := l.History.Entries()
	history := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		history[i] = ToHistoryEntryResponse(e)
	}

	return LeadResponse{
		ID: l.ID,
		Contact: ContactResponse{
			FirstName: l.Contact.FirstName,
			LastName:  l.Contact.LastName,
			Email:     l.Contact.Email.String(),
			Phone:     l.Contact.Phone.String(),
			Address: AddressInput{
				Street:     l.Contact.Address.Street(),
				City:       l.Contact.Address.City(),
				PostalCode: l.Contact.Address.PostalCode(),
				State:      l.Contact.Address.State(),
				Country:    l.Contact.Address.Country(),
			},
		},
		Source: SourceResponse{
			Type:            string(l.Source.Type),
			SourceID:        l.Source.SourceID,
			SourceName:      l.Source.SourceName,
			AcquisitionCost: l.Source.AcquisitionCost,
			AffiliateCode:   l.Source.AffiliateCode,
			CampaignID:      l.Source.CampaignID,
		},
		Commission: CommissionResponse{
			SalespersonID:      l.Commission.SalespersonID,
			SalespersonRate:    l.Commission.SalespersonRate,
			AffiliateID:        l.Commission.AffiliateID,
			AffiliateRate:      l.Commission.AffiliateRate,
			LeadCost:           l.Commission.LeadCost,
			TotalCommissionDue: l.Commission.TotalCommissionDue,
			CommissionPaid:     l.Commission.CommissionPaid,
			PaymentDate:        l.Commission.PaymentDate,
		},
		Status: StatusResponse{
			Current:     string(l.Status.Current),
			LastChanged: l.Status.LastChanged,
			ChangedBy:   l.Status.ChangedBy,
			Reason:      l.Status.Reason,
		},
		Priority:            string(l.Priority),
		Products:            products,
		TotalEstimatedValue: l.TotalEstimatedValue,
		TotalFinalValue:     l.TotalFinalValue,
		Currency:            string(l.Currency),
		LastContact:         l.LastContact,
		NextFollowUp:        l.NextFollowUp,
		ConversionDate:      l.ConversionDate,
		History:             history,
		Notes:               nonNil(l.Notes),
		Tags:                nonNil(l.Tags),
		AppointmentIDs:      nonNil(l.AppointmentIDs),
		ProposalIDs:         nonNil(l.ProposalIDs),
		InvoiceIDs:          nonNil(l.InvoiceIDs),
		EmailIDs:            nonNil(l.EmailIDs),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
		Version:             l.Version,
	}
}

// ToLeadListItemResponse converts a domain lead to its list DTO
func ToLeadListItemResponse(l *lead.Lead) LeadListItemResponse {
	return LeadListItemResponse{
		ID:                  l.ID,
		FullName:            l.Contact.FullName(),
		Email:               l.Contact.Email.String(),
		City:                l.Contact.Address.City(),
		Source:              string(l.Source.Type),
		Status:              string(l.Status.Current),
		Priority:            string(l.Priority),
		SalespersonID:       l.Commission.SalespersonID,
		TotalEstimatedValue: l.TotalEstimatedValue,
		TotalFinalValue:     l.TotalFinalValue,
		Currency:            string(l.Currency),
		Tags:                nonNil(l.Tags),
		LastContact:         l.LastContact,
		NextFollowUp:        l.NextFollowUp,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

// ToProductResponse converts a line item
func ToProductResponse(p lead.ProductLine) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       string(p.Category),
		Type:           p.Type,
		EstimatedValue: p.EstimatedValue,
		FinalValue:     p.FinalValue,
		Specifications: p.Specifications,
	}
}

// ToHistoryEntryResponse converts a history entry
func ToHistoryEntryResponse(e lead.HistoryEntry) HistoryEntryResponse {
	out := HistoryEntryResponse{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Action:      string(e.Action),
		Description: e.Description,
		PerformedBy: e.PerformedBy,
		Details:     e.Details,
	}
	if e.PreviousStatus != nil {
		out.PreviousStatus = string(*e.PreviousStatus)
	}
	if e.NewStatus != nil {
		out.NewStatus = string(*e.NewStatus)
	}
	return out
}

// ToCommissionBreakdownResponse converts a calculator result
func ToCommissionBreakdownResponse(l *lead.Lead, b lead.CommissionBreakdown) CommissionBreakdownResponse {
	return CommissionBreakdownResponse{
		LeadID:              l.ID,
		BaseValue:           b.BaseValue.Amount(),
		SalesCommission:     b.SalesCommission.Amount(),
		AffiliateCommission: b.AffiliateCommission.Amount(),
		TotalCommission:     b.TotalCommission.Amount(),
		NetRevenue:          b.NetRevenue.Amount(),
		Currency:            string(b.Currency),
		MinorUnits:          b.MinorUnits(),
		UsesFinalValue:      l.TotalFinalValue != nil,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
