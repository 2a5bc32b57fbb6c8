package persistence

import (
	"testing"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixtureTime = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func ptrDecimal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type leadFixture struct {
	firstName string
	lastName  string
	city      string
	source    lead.SourceType
	sp        string
	value     string
	tags      []string
	createdAt time.Time
}

func newFixtureLead(t *testing.T, f leadFixture) *lead.Lead {
	t.Helper()
	if f.firstName == "" {
		f.firstName = "Jonas"
	}
	if f.lastName == "" {
		f.lastName = "Weber"
	}
	if f.city == "" {
		f.city = "Hamburg"
	}
	if f.source == "" {
		f.source = lead.SourceSalesperson
	}
	if f.sp == "" {
		f.sp = "sp-1"
	}
	if f.value == "" {
		f.value = "20000"
	}
	if f.createdAt.IsZero() {
		f.createdAt = fixtureTime
	}
	email, err := valueobject.NewEmail(f.firstName + "." + f.lastName + "@example.de")
	require.NoError(t, err)
	phone, err := valueobject.NewPhone("040 1234567", "DE")
	require.NoError(t, err)

	source := lead.SourceAttribution{Type: f.source, SourceID: f.sp}
	if f.source == lead.SourcePurchased {
		source = lead.SourceAttribution{Type: f.source, SourceName: "LeadMarket", AcquisitionCost: decimal.RequireFromString("45")}
	}
	l, err := lead.NewLead(lead.NewLeadParams{
		Contact: lead.Contact{
			FirstName: f.firstName,
			LastName:  f.lastName,
			Email:     email,
			Phone:     phone,
			Address:   valueobject.MustNewAddress(f.city, valueobject.WithStreet("Elbchaussee 1"), valueobject.WithPostalCode("22763")),
		},
		Source: source,
		Commission: lead.CommissionTerms{
			SalespersonID:   f.sp,
			SalespersonRate: ptrDecimal("3.5"),
		},
		Products: []lead.ProductInput{
			{
				Name:           "PV 10kWp",
				Category:       lead.CategorySolar,
				EstimatedValue: decimal.RequireFromString(f.value),
				Specifications: map[string]string{"modules": "24"},
			},
		},
		Tags: f.tags,
		Now:  f.createdAt,
	})
	require.NoError(t, err)
	l.ClearDomainEvents()
	return l
}

// advance applies legal transitions one minute apart
func advance(t *testing.T, l *lead.Lead, at time.Time, targets ...lead.Status) time.Time {
	t.Helper()
	for _, target := range targets {
		at = at.Add(time.Minute)
		_, err := l.Transition(target, "sp-1", "", at)
		require.NoError(t, err)
	}
	l.ClearDomainEvents()
	return at
}
