package models

import (
	"fmt"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadModel is the persistence model for the Lead aggregate root.
type LeadModel struct {
	AggregateModel
	FirstName  string `gorm:"type:varchar(100);not null"`
	LastName   string `gorm:"type:varchar(100);not null;index"`
	Email      string `gorm:"type:varchar(254);not null;index"`
	Phone      string `gorm:"type:varchar(30)"`
	Street     string `gorm:"type:varchar(200)"`
	City       string `gorm:"type:varchar(100);not null"`
	PostalCode string `gorm:"type:varchar(12)"`
	State      string `gorm:"type:varchar(100)"`
	Country    string `gorm:"type:varchar(100)"`

	SourceType      string          `gorm:"type:varchar(30);not null;index"`
	SourceID        string          `gorm:"type:varchar(100)"`
	SourceName      string          `gorm:"type:varchar(200)"`
	AcquisitionCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AffiliateCode   string          `gorm:"type:varchar(100)"`
	CampaignID      string          `gorm:"type:varchar(100)"`

	SalespersonID      string           `gorm:"type:varchar(100);index"`
	SalespersonRate    *decimal.Decimal `gorm:"type:decimal(7,4)"`
	AffiliateID        string           `gorm:"type:varchar(100)"`
	AffiliateRate      *decimal.Decimal `gorm:"type:decimal(7,4)"`
	LeadCost           *decimal.Decimal `gorm:"type:decimal(18,4)"`
	TotalCommissionDue *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CommissionPaid     bool             `gorm:"not null;default:false"`
	PaymentDate        *time.Time

	Status          string    `gorm:"type:varchar(30);not null;default:'new';index"`
	StatusChangedAt time.Time `gorm:"not null"`
	StatusChangedBy string    `gorm:"type:varchar(100);not null"`
	StatusReason    string    `gorm:"type:varchar(500)"`

	Priority            string           `gorm:"type:varchar(10);not null;default:'medium';index"`
	TotalEstimatedValue decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	TotalFinalValue     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Currency            string           `gorm:"type:varchar(3);not null;default:'EUR'"`

	LastContact    *time.Time
	NextFollowUp   *time.Time
	ConversionDate *time.Time `gorm:"index"`

	Notes          []string `gorm:"type:jsonb;serializer:json"`
	Tags           []string `gorm:"type:jsonb;serializer:json"`
	AppointmentIDs []string `gorm:"type:jsonb;serializer:json"`
	ProposalIDs    []string `gorm:"type:jsonb;serializer:json"`
	InvoiceIDs     []string `gorm:"type:jsonb;serializer:json"`
	EmailIDs       []string `gorm:"type:jsonb;serializer:json"`

	Products []LeadProductModel      `gorm:"foreignKey:LeadID;references:ID"`
	History  []LeadHistoryEntryModel `gorm:"foreignKey:LeadID;references:ID"`
}

// TableName returns the table name for GORM
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts the persistence model to a domain Lead.
// phoneRegion is only used for numbers stored without a country prefix.
func (m *LeadModel) ToDomain(phoneRegion string) (*lead.Lead, error) {
	email, err := valueobject.NewEmail(m.Email)
	if err != nil {
		return nil, fmt.Errorf("lead %s: %w", m.ID, err)
	}
	var phone valueobject.Phone
	if m.Phone != "" {
		phone, err = valueobject.NewPhone(m.Phone, phoneRegion)
		if err != nil {
			return nil, fmt.Errorf("lead %s: %w", m.ID, err)
		}
	}
	address, err := valueobject.NewAddress(m.City,
		valueobject.WithStreet(m.Street),
		valueobject.WithPostalCode(m.PostalCode),
		valueobject.WithState(m.State),
		valueobject.WithCountry(m.Country),
	)
	if err != nil {
		return nil, fmt.Errorf("lead %s: %w", m.ID, err)
	}

	entries := make([]lead.HistoryEntry, len(m.History))
	for i := range m.History {
		entries[i] = m.History[i].ToDomain()
	}
	history, err := lead.HistoryFromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("lead %s history: %w", m.ID, err)
	}

	l := &lead.Lead{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Contact: lead.Contact{
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Email:     email,
			Phone:     phone,
			Address:   address,
		},
		Source: lead.SourceAttribution{
			Type:            lead.SourceType(m.SourceType),
			SourceID:        m.SourceID,
			SourceName:      m.SourceName,
			AcquisitionCost: m.AcquisitionCost,
			AffiliateCode:   m.AffiliateCode,
			CampaignID:      m.CampaignID,
		},
		Commission: lead.CommissionTerms{
			SalespersonID:      m.SalespersonID,
			SalespersonRate:    m.SalespersonRate,
			AffiliateID:        m.AffiliateID,
			AffiliateRate:      m.AffiliateRate,
			LeadCost:           m.LeadCost,
			TotalCommissionDue: m.TotalCommissionDue,
			CommissionPaid:     m.CommissionPaid,
			PaymentDate:        m.PaymentDate,
		},
		Status: lead.StatusInfo{
			Current:     lead.Status(m.Status),
			LastChanged: m.StatusChangedAt,
			ChangedBy:   m.StatusChangedBy,
			Reason:      m.StatusReason,
		},
		Priority:            lead.Priority(m.Priority),
		Products:            make([]lead.ProductLine, len(m.Products)),
		TotalEstimatedValue: m.TotalEstimatedValue,
		TotalFinalValue:     m.TotalFinalValue,
		Currency:            valueobject.Currency(m.Currency),
		LastContact:         m.LastContact,
		NextFollowUp:        m.NextFollowUp,
		ConversionDate:      m.ConversionDate,
		History:             history,
		Notes:               m.Notes,
		Tags:                m.Tags,
		AppointmentIDs:      m.AppointmentIDs,
		ProposalIDs:         m.ProposalIDs,
		InvoiceIDs:          m.InvoiceIDs,
		EmailIDs:            m.EmailIDs,
	}
	for i := range m.Products {
		l.Products[i] = m.Products[i].ToDomain()
	}
	return l, nil
}

// FromDomain populates the persistence model from a domain Lead.
// Products and history are populated separately by the repository.
func (m *LeadModel) FromDomain(l *lead.Lead) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.FirstName = l.Contact.FirstName
	m.LastName = l.Contact.LastName
	m.Email = l.Contact.Email.String()
	m.Phone = l.Contact.Phone.String()
	m.Street = l.Contact.Address.Street()
	m.City = l.Contact.Address.City()
	m.PostalCode = l.Contact.Address.PostalCode()
	m.State = l.Contact.Address.State()
	m.Country = l.Contact.Address.Country()

	m.SourceType = string(l.Source.Type)
	m.SourceID = l.Source.SourceID
	m.SourceName = l.Source.SourceName
	m.AcquisitionCost = l.Source.AcquisitionCost
	m.AffiliateCode = l.Source.AffiliateCode
	m.CampaignID = l.Source.CampaignID

	m.SalespersonID = l.Commission.SalespersonID
	m.SalespersonRate = l.Commission.SalespersonRate
	m.AffiliateID = l.Commission.AffiliateID
	m.AffiliateRate = l.Commission.AffiliateRate
	m.LeadCost = l.Commission.LeadCost
	m.TotalCommissionDue = l.Commission.TotalCommissionDue
	m.CommissionPaid = l.Commission.CommissionPaid
	m.PaymentDate = l.Commission.PaymentDate

	m.Status = string(l.Status.Current)
	m.StatusChangedAt = l.Status.LastChanged
	m.StatusChangedBy = l.Status.ChangedBy
	m.StatusReason = l.Status.Reason

	m.Priority = string(l.Priority)
	m.TotalEstimatedValue = l.TotalEstimatedValue
	m.TotalFinalValue = l.TotalFinalValue
	m.Currency = string(l.Currency)
	m.LastContact = l.LastContact
	m.NextFollowUp = l.NextFollowUp
	m.ConversionDate = l.ConversionDate

	m.Notes = l.Notes
	m.Tags = l.Tags
	m.AppointmentIDs = l.AppointmentIDs
	m.ProposalIDs = l.ProposalIDs
	m.InvoiceIDs = l.InvoiceIDs
	m.EmailIDs = l.EmailIDs
}

// LeadModelFromDomain creates a new persistence model from a domain Lead
// including its products and history.
func LeadModelFromDomain(l *lead.Lead) *LeadModel {
	m := &LeadModel{}
	m.FromDomain(l)
	m.Products = make([]LeadProductModel, len(l.Products))
	for i, p := range l.Products {
		m.Products[i] = *LeadProductModelFromDomain(l.ID, i, p)
	}
	entries := l.History.Entries()
	m.History = make([]LeadHistoryEntryModel, len(entries))
	for i, e := range entries {
		m.History[i] = *LeadHistoryEntryModelFromDomain(l.ID, i, e)
	}
	return m
}

// LeadProductModel is the persistence model for a product line item.
type LeadProductModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	LeadID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	Position       int               `gorm:"not null;default:0"`
	Name           string            `gorm:"type:varchar(200);not null"`
	Category       string            `gorm:"type:varchar(30);not null"`
	Type           string            `gorm:"type:varchar(100)"`
	EstimatedValue decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	FinalValue     *decimal.Decimal  `gorm:"type:decimal(18,4)"`
	Specifications map[string]string `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (LeadProductModel) TableName() string {
	return "lead_products"
}

// ToDomain converts the persistence model to a domain ProductLine
func (m *LeadProductModel) ToDomain() lead.ProductLine {
	return lead.ProductLine{
		ID:             m.ID,
		Name:           m.Name,
		Category:       lead.ProductCategory(m.Category),
		Type:           m.Type,
		EstimatedValue: m.EstimatedValue,
		FinalValue:     m.FinalValue,
		Specifications: m.Specifications,
	}
}

// LeadProductModelFromDomain creates a persistence model for the line item at position
func LeadProductModelFromDomain(leadID uuid.UUID, position int, p lead.ProductLine) *LeadProductModel {
	return &LeadProductModel{
		ID:             p.ID,
		LeadID:         leadID,
		Position:       position,
		Name:           p.Name,
		Category:       string(p.Category),
		Type:           p.Type,
		EstimatedValue: p.EstimatedValue,
		FinalValue:     p.FinalValue,
		Specifications: p.Specifications,
	}
}

// LeadHistoryEntryModel is the persistence model for one history entry.
// Rows are only ever inserted.
type LeadHistoryEntryModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	LeadID         uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_lead_history_sequence,priority:1"`
	Sequence       int               `gorm:"not null;uniqueIndex:idx_lead_history_sequence,priority:2"`
	Timestamp      time.Time         `gorm:"column:occurred_at;not null"`
	Action         string            `gorm:"type:varchar(30);not null"`
	Description    string            `gorm:"type:text"`
	PerformedBy    string            `gorm:"type:varchar(100);not null"`
	PreviousStatus *string           `gorm:"type:varchar(30)"`
	NewStatus      *string           `gorm:"type:varchar(30)"`
	Details        map[string]string `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (LeadHistoryEntryModel) TableName() string {
	return "lead_history_entries"
}

// ToDomain converts the persistence model to a domain HistoryEntry
func (m *LeadHistoryEntryModel) ToDomain() lead.HistoryEntry {
	e := lead.HistoryEntry{
		ID:          m.ID,
		Timestamp:   m.Timestamp,
		Action:      lead.HistoryAction(m.Action),
		Description: m.Description,
		PerformedBy: m.PerformedBy,
		Details:     m.Details,
	}
	if m.PreviousStatus != nil {
		s := lead.Status(*m.PreviousStatus)
		e.PreviousStatus = &s
	}
	if m.NewStatus != nil {
		s := lead.Status(*m.NewStatus)
		e.NewStatus = &s
	}
	return e
}

// LeadHistoryEntryModelFromDomain creates a persistence model for the entry at sequence
func LeadHistoryEntryModelFromDomain(leadID uuid.UUID, sequence int, e lead.HistoryEntry) *LeadHistoryEntryModel {
	m := &LeadHistoryEntryModel{
		ID:          e.ID,
		LeadID:      leadID,
		Sequence:    sequence,
		Timestamp:   e.Timestamp,
		Action:      string(e.Action),
		Description: e.Description,
		PerformedBy: e.PerformedBy,
		Details:     e.Details,
	}
	if e.PreviousStatus != nil {
		s := string(*e.PreviousStatus)
		m.PreviousStatus = &s
	}
	if e.NewStatus != nil {
		s := string(*e.NewStatus)
		m.NewStatus = &s
	}
	return m
}
