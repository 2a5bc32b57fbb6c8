package lead

import (
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SourceType describes how a lead originated
type SourceType string

const (
	SourceSalesperson  SourceType = "salesperson"
	SourcePurchased    SourceType = "purchased"
	SourceCompanyOwned SourceType = "company_owned"
	SourceAdvertising  SourceType = "advertising"
	SourceRegistration SourceType = "registration"
	SourceAffiliate    SourceType = "affiliate"
)

// AllSourceTypes lists every source type
var AllSourceTypes = []SourceType{
	SourceSalesperson,
	SourcePurchased,
	SourceCompanyOwned,
	SourceAdvertising,
	SourceRegistration,
	SourceAffiliate,
}

// IsValid checks if the source type is known
func (s SourceType) IsValid() bool {
	switch s {
	case SourceSalesperson, SourcePurchased, SourceCompanyOwned, SourceAdvertising, SourceRegistration, SourceAffiliate:
		return true
	}
	return false
}

// IsAutomated reports whether leads of this source arrive without a human actor
func (s SourceType) IsAutomated() bool {
	switch s {
	case SourcePurchased, SourceAdvertising, SourceRegistration, SourceAffiliate:
		return true
	}
	return false
}

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// SourceAttribution records where a lead came from. It is fixed at creation.
type SourceAttribution struct {
	Type            SourceType
	SourceID        string
	SourceName      string
	AcquisitionCost decimal.Decimal
	AffiliateCode   string
	CampaignID      string
}

// Validate checks the attribution
func (s SourceAttribution) Validate() error {
	if !s.Type.IsValid() {
		return shared.NewValidationError("Unknown lead source %q", s.Type)
	}
	if err := validateAmount("Acquisition cost", s.AcquisitionCost); err != nil {
		return err
	}
	if s.Type == SourceAffiliate && s.AffiliateCode == "" && s.SourceID == "" {
		return shared.NewValidationError("Affiliate leads require an affiliate code or source id")
	}
	return nil
}
