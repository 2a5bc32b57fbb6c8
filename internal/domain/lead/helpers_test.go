package lead

import (
	"testing"
	"time"

	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testContact(t *testing.T) Contact {
	t.Helper()
	email, err := valueobject.NewEmail("anna.schmidt@example.de")
	require.NoError(t, err)
	phone, err := valueobject.NewPhone("030 123456", "DE")
	require.NoError(t, err)
	return Contact{
		FirstName: "Anna",
		LastName:  "Schmidt",
		Email:     email,
		Phone:     phone,
		Address:   valueobject.MustNewAddress("Munich", valueobject.WithStreet("Sonnenweg 4"), valueobject.WithPostalCode("80331")),
	}
}

func newTestLead(t *testing.T, mutate ...func(*NewLeadParams)) *Lead {
	t.Helper()
	params := NewLeadParams{
		Contact: testContact(t),
		Source:  SourceAttribution{Type: SourceSalesperson, SourceID: "sp-1"},
		Commission: CommissionTerms{
			SalespersonID:   "sp-1",
			SalespersonRate: decPtr("3.5"),
		},
		Products: []ProductInput{
			{Name: "PV 10kWp", Category: CategorySolar, EstimatedValue: dec("20000")},
		},
		Now: baseTime,
	}
	for _, m := range mutate {
		m(&params)
	}
	l, err := NewLead(params)
	require.NoError(t, err)
	l.ClearDomainEvents()
	return l
}

// pathTo lists the transitions that drive a new lead into target
var pathTo = map[Status][]Status{
	StatusNew:                   {},
	StatusContacted:             {StatusContacted},
	StatusQualified:             {StatusContacted, StatusQualified},
	StatusProposalSent:          {StatusContacted, StatusQualified, StatusProposalSent},
	StatusNegotiation:           {StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation},
	StatusContractSigned:        {StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation, StatusContractSigned},
	StatusInstallationScheduled: {StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation, StatusContractSigned, StatusInstallationScheduled},
	StatusCompleted:             {StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation, StatusContractSigned, StatusInstallationScheduled, StatusCompleted},
	StatusClosedWon:             {StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation, StatusContractSigned, StatusClosedWon},
	StatusClosedLost:            {StatusContacted, StatusQualified, StatusProposalSent, StatusClosedLost},
	StatusNotReachable:          {StatusNotReachable},
	StatusFollowUpLater:         {StatusContacted, StatusFollowUpLater},
}

func driveTo(t *testing.T, l *Lead, target Status) {
	t.Helper()
	path, ok := pathTo[target]
	require.True(t, ok, "no path to %s", target)
	now := baseTime
	for _, s := range path {
		now = now.Add(time.Minute)
		_, err := l.Transition(s, "sp-1", "", now)
		require.NoError(t, err)
	}
	l.ClearDomainEvents()
}

func assertMonotonic(t *testing.T, l *Lead) {
	t.Helper()
	entries := l.History.Entries()
	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp), "entry %d goes back in time", i)
	}
	require.False(t, l.UpdatedAt.Before(l.CreatedAt))
}
