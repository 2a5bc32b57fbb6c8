package lead

import (
	"time"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeLead = "Lead"

// Event type constants
const (
	EventTypeLeadCreated            = "LeadCreated"
	EventTypeLeadStatusChanged      = "LeadStatusChanged"
	EventTypeLeadConverted          = "LeadConverted"
	EventTypeLeadContactRecorded    = "LeadContactRecorded"
	EventTypeLeadProductsChanged    = "LeadProductsChanged"
	EventTypeLeadUpdated            = "LeadUpdated"
	EventTypeLeadCommissionAssessed = "LeadCommissionAssessed"
	EventTypeLeadCommissionSettled  = "LeadCommissionSettled"
)

// AllEventTypes lists every lead event type
var AllEventTypes = []string{
	EventTypeLeadCreated,
	EventTypeLeadStatusChanged,
	EventTypeLeadConverted,
	EventTypeLeadContactRecorded,
	EventTypeLeadProductsChanged,
	EventTypeLeadUpdated,
	EventTypeLeadCommissionAssessed,
	EventTypeLeadCommissionSettled,
}

// LeadCreatedEvent is raised when an intake creates a lead
type LeadCreatedEvent struct {
	shared.BaseDomainEvent
	LeadID     uuid.UUID  `json:"lead_id"`
	SourceType SourceType `json:"source_type"`
	Email      string     `json:"email"`
	CreatedBy  string     `json:"created_by"`
}

// NewLeadCreatedEvent creates a new LeadCreatedEvent
func NewLeadCreatedEvent(l *Lead, actor string) *LeadCreatedEvent {
	return &LeadCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadCreated, AggregateTypeLead, l.ID, l.CreatedAt),
		LeadID:          l.ID,
		SourceType:      l.Source.Type,
		Email:           l.Contact.Email.String(),
		CreatedBy:       actor,
	}
}

// EventType returns the event type name
func (e *LeadCreatedEvent) EventType() string {
	return EventTypeLeadCreated
}

// LeadStatusChangedEvent is raised on every successful transition
type LeadStatusChangedEvent struct {
	shared.BaseDomainEvent
	LeadID         uuid.UUID `json:"lead_id"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	Reason         string    `json:"reason,omitempty"`
}

// NewLeadStatusChangedEvent creates a new LeadStatusChangedEvent
func NewLeadStatusChangedEvent(l *Lead, previous Status, actor, reason string, at time.Time) *LeadStatusChangedEvent {
	return &LeadStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadStatusChanged, AggregateTypeLead, l.ID, at),
		LeadID:          l.ID,
		PreviousStatus:  previous,
		NewStatus:       l.Status.Current,
		ChangedBy:       actor,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *LeadStatusChangedEvent) EventType() string {
	return EventTypeLeadStatusChanged
}

// LeadConvertedEvent is raised the first time a lead reaches a won status.
// Notification collaborators use it to send referral mails.
type LeadConvertedEvent struct {
	shared.BaseDomainEvent
	LeadID         uuid.UUID       `json:"lead_id"`
	Status         Status          `json:"status"`
	ConversionDate time.Time       `json:"conversion_date"`
	Value          decimal.Decimal `json:"value"`
	SalespersonID  string          `json:"salesperson_id,omitempty"`
}

// NewLeadConvertedEvent creates a new LeadConvertedEvent
func NewLeadConvertedEvent(l *Lead, at time.Time) *LeadConvertedEvent {
	return &LeadConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadConverted, AggregateTypeLead, l.ID, at),
		LeadID:          l.ID,
		Status:          l.Status.Current,
		ConversionDate:  at,
		Value:           l.Value(),
		SalespersonID:   l.Commission.SalespersonID,
	}
}

// EventType returns the event type name
func (e *LeadConvertedEvent) EventType() string {
	return EventTypeLeadConverted
}

// LeadContactRecordedEvent is raised when a contact entry is appended
type LeadContactRecordedEvent struct {
	shared.BaseDomainEvent
	LeadID      uuid.UUID         `json:"lead_id"`
	EntryID     uuid.UUID         `json:"entry_id"`
	Action      HistoryAction     `json:"action"`
	PerformedBy string            `json:"performed_by"`
	Details     map[string]string `json:"details,omitempty"`
}

// NewLeadContactRecordedEvent creates a new LeadContactRecordedEvent
func NewLeadContactRecordedEvent(l *Lead, entry HistoryEntry) *LeadContactRecordedEvent {
	return &LeadContactRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadContactRecorded, AggregateTypeLead, l.ID, entry.Timestamp),
		LeadID:          l.ID,
		EntryID:         entry.ID,
		Action:          entry.Action,
		PerformedBy:     entry.PerformedBy,
		Details:         copyStringMap(entry.Details),
	}
}

// EventType returns the event type name
func (e *LeadContactRecordedEvent) EventType() string {
	return EventTypeLeadContactRecorded
}

// LeadProductsChangedEvent is raised when line items or their values change
type LeadProductsChangedEvent struct {
	shared.BaseDomainEvent
	LeadID              uuid.UUID        `json:"lead_id"`
	ProductID           uuid.UUID        `json:"product_id"`
	Action              HistoryAction    `json:"action"`
	TotalEstimatedValue decimal.Decimal  `json:"total_estimated_value"`
	TotalFinalValue     *decimal.Decimal `json:"total_final_value,omitempty"`
}

// NewLeadProductsChangedEvent creates a new LeadProductsChangedEvent
func NewLeadProductsChangedEvent(l *Lead, action HistoryAction, productID uuid.UUID) *LeadProductsChangedEvent {
	return &LeadProductsChangedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeLeadProductsChanged, AggregateTypeLead, l.ID, l.UpdatedAt),
		LeadID:              l.ID,
		ProductID:           productID,
		Action:              action,
		TotalEstimatedValue: l.TotalEstimatedValue,
		TotalFinalValue:     copyDecimal(l.TotalFinalValue),
	}
}

// EventType returns the event type name
func (e *LeadProductsChangedEvent) EventType() string {
	return EventTypeLeadProductsChanged
}

// LeadUpdatedEvent is raised for priority, tag and commission term edits
type LeadUpdatedEvent struct {
	shared.BaseDomainEvent
	LeadID uuid.UUID     `json:"lead_id"`
	Action HistoryAction `json:"action"`
}

// NewLeadUpdatedEvent creates a new LeadUpdatedEvent
func NewLeadUpdatedEvent(l *Lead, action HistoryAction) *LeadUpdatedEvent {
	return &LeadUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadUpdated, AggregateTypeLead, l.ID, l.UpdatedAt),
		LeadID:          l.ID,
		Action:          action,
	}
}

// EventType returns the event type name
func (e *LeadUpdatedEvent) EventType() string {
	return EventTypeLeadUpdated
}

// LeadCommissionAssessedEvent is raised when the commission due is fixed
type LeadCommissionAssessedEvent struct {
	shared.BaseDomainEvent
	LeadID             uuid.UUID       `json:"lead_id"`
	TotalCommissionDue decimal.Decimal `json:"total_commission_due"`
	NetRevenue         decimal.Decimal `json:"net_revenue"`
	Currency           string          `json:"currency"`
}

// NewLeadCommissionAssessedEvent creates a new LeadCommissionAssessedEvent
func NewLeadCommissionAssessedEvent(l *Lead, b CommissionBreakdown) *LeadCommissionAssessedEvent {
	return &LeadCommissionAssessedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeLeadCommissionAssessed, AggregateTypeLead, l.ID, l.UpdatedAt),
		LeadID:             l.ID,
		TotalCommissionDue: b.TotalCommission.Amount(),
		NetRevenue:         b.NetRevenue.Amount(),
		Currency:           string(b.Currency),
	}
}

// EventType returns the event type name
func (e *LeadCommissionAssessedEvent) EventType() string {
	return EventTypeLeadCommissionAssessed
}

// LeadCommissionSettledEvent is raised when the payout collaborator may pay
type LeadCommissionSettledEvent struct {
	shared.BaseDomainEvent
	LeadID             uuid.UUID       `json:"lead_id"`
	SalespersonID      string          `json:"salesperson_id,omitempty"`
	AffiliateID        string          `json:"affiliate_id,omitempty"`
	TotalCommissionDue decimal.Decimal `json:"total_commission_due"`
	PaymentDate        time.Time       `json:"payment_date"`
}

// NewLeadCommissionSettledEvent creates a new LeadCommissionSettledEvent
func NewLeadCommissionSettledEvent(l *Lead) *LeadCommissionSettledEvent {
	e := &LeadCommissionSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeadCommissionSettled, AggregateTypeLead, l.ID, l.UpdatedAt),
		LeadID:          l.ID,
		SalespersonID:   l.Commission.SalespersonID,
		AffiliateID:     l.Commission.AffiliateID,
	}
	if l.Commission.TotalCommissionDue != nil {
		e.TotalCommissionDue = *l.Commission.TotalCommissionDue
	}
	if l.Commission.PaymentDate != nil {
		e.PaymentDate = *l.Commission.PaymentDate
	}
	return e
}

// EventType returns the event type name
func (e *LeadCommissionSettledEvent) EventType() string {
	return EventTypeLeadCommissionSettled
}
