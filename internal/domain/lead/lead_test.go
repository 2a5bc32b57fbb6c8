package lead

import (
	"errors"
	"testing"
	"time"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Creation
// ============================================

func TestNewLead(t *testing.T) {
	t.Run("creates lead in status new with a single created entry", func(t *testing.T) {
		params := NewLeadParams{
			Contact:  testContact(t),
			Source:   SourceAttribution{Type: SourceAdvertising, CampaignID: "spring-25"},
			Products: []ProductInput{{Name: "Heat pump", Category: CategoryHeatPump, EstimatedValue: dec("12000")}},
			Tags:     []string{"  Solar ", "b2c", "solar"},
			Now:      baseTime,
		}
		l, err := NewLead(params)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, l.ID)
		assert.Equal(t, StatusNew, l.Status.Current)
		assert.Equal(t, PriorityMedium, l.Priority)
		assert.Equal(t, valueobject.EUR, l.Currency)
		assert.Equal(t, baseTime, l.CreatedAt)
		assert.Equal(t, baseTime, l.UpdatedAt)
		assert.True(t, l.TotalEstimatedValue.Equal(dec("12000")))
		assert.Nil(t, l.TotalFinalValue)
		assert.Equal(t, []string{"b2c", "solar"}, l.Tags)

		require.Equal(t, 1, l.History.Len())
		entry, _ := l.History.Last()
		assert.Equal(t, ActionCreated, entry.Action)
		assert.Equal(t, SystemActor, entry.PerformedBy)
		assert.Equal(t, "spring-25", entry.Details["campaignId"])

		events := l.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeLeadCreated, events[0].EventType())
	})

	t.Run("salesperson leads are attributed to the salesperson", func(t *testing.T) {
		l := newTestLead(t)
		entry, _ := l.History.Last()
		assert.Equal(t, "sp-1", entry.PerformedBy)
		assert.Equal(t, "sp-1", l.Status.ChangedBy)
	})

	t.Run("explicit actor wins", func(t *testing.T) {
		l := newTestLead(t, func(p *NewLeadParams) { p.Actor = "importer" })
		entry, _ := l.History.Last()
		assert.Equal(t, "importer", entry.PerformedBy)
	})

	t.Run("acquisition cost becomes lead cost", func(t *testing.T) {
		l := newTestLead(t, func(p *NewLeadParams) {
			p.Source = SourceAttribution{Type: SourcePurchased, AcquisitionCost: dec("45")}
		})
		require.NotNil(t, l.Commission.LeadCost)
		assert.True(t, l.Commission.LeadCost.Equal(dec("45")))
	})

	tests := []struct {
		name   string
		mutate func(*NewLeadParams)
	}{
		{"missing first name", func(p *NewLeadParams) { p.Contact.FirstName = " " }},
		{"missing last name", func(p *NewLeadParams) { p.Contact.LastName = "" }},
		{"missing email", func(p *NewLeadParams) { p.Contact.Email = valueobject.Email{} }},
		{"missing city", func(p *NewLeadParams) { p.Contact.Address = valueobject.Address{} }},
		{"unknown source", func(p *NewLeadParams) { p.Source.Type = "billboard" }},
		{"negative acquisition cost", func(p *NewLeadParams) { p.Source.AcquisitionCost = dec("-1") }},
		{"negative salesperson rate", func(p *NewLeadParams) { p.Commission.SalespersonRate = decPtr("-0.5") }},
		{"negative affiliate rate", func(p *NewLeadParams) {
			p.Commission.AffiliateID = "aff-1"
			p.Commission.AffiliateRate = decPtr("-2")
		}},
		{"rate above 100", func(p *NewLeadParams) { p.Commission.SalespersonRate = decPtr("101") }},
		{"negative lead cost", func(p *NewLeadParams) { p.Commission.LeadCost = decPtr("-10") }},
		{"settled at intake", func(p *NewLeadParams) { p.Commission.CommissionPaid = true }},
		{"unknown priority", func(p *NewLeadParams) { p.Priority = "asap" }},
		{"unknown category", func(p *NewLeadParams) { p.Products[0].Category = "nuclear" }},
		{"negative product value", func(p *NewLeadParams) { p.Products[0].EstimatedValue = dec("-1") }},
		{"affiliate without code", func(p *NewLeadParams) { p.Source = SourceAttribution{Type: SourceAffiliate} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := NewLeadParams{
				Contact: testContact(t),
				Source:  SourceAttribution{Type: SourceSalesperson},
				Commission: CommissionTerms{
					SalespersonID:   "sp-1",
					SalespersonRate: decPtr("3"),
				},
				Products: []ProductInput{{Name: "PV", Category: CategorySolar, EstimatedValue: dec("1000")}},
				Now:      baseTime,
			}
			tt.mutate(&params)
			_, err := NewLead(params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation), err.Error())
		})
	}
}

// ============================================
// Transitions
// ============================================

func TestLead_TransitionLegality(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				l := newTestLead(t)
				l.Status.Current = from
				before := l.History.Len()

				changed, err := l.Transition(to, "sp-1", "", baseTime.Add(time.Hour))

				switch {
				case from.CanTransitionTo(to):
					require.NoError(t, err)
					assert.True(t, changed)
					assert.Equal(t, to, l.Status.Current)
					require.Equal(t, before+1, l.History.Len())
					last, _ := l.History.Last()
					assert.Equal(t, ActionStatusChanged, last.Action)
					assert.Equal(t, from, *last.PreviousStatus)
					assert.Equal(t, to, *last.NewStatus)
				case from == to && from.IsTerminal():
					require.NoError(t, err)
					assert.False(t, changed)
					assert.Equal(t, before, l.History.Len())
				default:
					require.Error(t, err)
					assert.True(t, errors.Is(err, shared.ErrIllegalTransition))
					assert.Equal(t, from, l.Status.Current)
					assert.Equal(t, before, l.History.Len())
				}
			})
		}
	}
}

func TestLead_Transition(t *testing.T) {
	t.Run("updates status info and bumps updatedAt", func(t *testing.T) {
		l := newTestLead(t)
		at := baseTime.Add(time.Hour)
		changed, err := l.Transition(StatusContacted, "sp-2", " reached by phone ", at)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusInfo{Current: StatusContacted, LastChanged: at, ChangedBy: "sp-2", Reason: "reached by phone"}, l.Status)
		assert.Equal(t, at, l.UpdatedAt)

		last, _ := l.History.Last()
		assert.Equal(t, "reached by phone", last.Details["reason"])

		events := l.GetDomainEvents()
		require.Len(t, events, 1)
		changedEvent, ok := events[0].(*LeadStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusNew, changedEvent.PreviousStatus)
		assert.Equal(t, StatusContacted, changedEvent.NewStatus)
	})

	t.Run("empty actor falls back to system", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.Transition(StatusContacted, "", "", baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, SystemActor, l.Status.ChangedBy)
	})

	t.Run("unknown target is a validation error", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.Transition("won", "sp-1", "", baseTime)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("illegal transition carries the allowed set", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.Transition(StatusClosedWon, "sp-1", "", baseTime)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, shared.CodeIllegalTransition, domainErr.Code)
		assert.Equal(t, "new", domainErr.Details["from"])
		assert.Equal(t, "closed_won", domainErr.Details["to"])
		assert.Equal(t, []string{"contacted", "not_reachable"}, domainErr.Details["allowed"])
	})

	t.Run("backwards clock is clamped", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.Transition(StatusContacted, "sp-1", "", baseTime.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, baseTime, l.Status.LastChanged)
		assertMonotonic(t, l)
	})
}

func TestLead_TerminalImmutability(t *testing.T) {
	for _, terminal := range []Status{StatusClosedWon, StatusClosedLost, StatusCompleted} {
		t.Run(string(terminal), func(t *testing.T) {
			l := newTestLead(t)
			driveTo(t, l, terminal)
			for _, target := range AllStatuses {
				if target == terminal {
					continue
				}
				_, err := l.Transition(target, "sp-1", "", baseTime.Add(time.Hour))
				assert.True(t, errors.Is(err, shared.ErrIllegalTransition), target)
			}
			assert.Equal(t, terminal, l.Status.Current)
		})
	}
}

func TestLead_ConversionDate(t *testing.T) {
	t.Run("set on closed_won", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusContractSigned)
		assert.Nil(t, l.ConversionDate)

		at := baseTime.Add(24 * time.Hour)
		_, err := l.Transition(StatusClosedWon, "sp-1", "", at)
		require.NoError(t, err)
		require.NotNil(t, l.ConversionDate)
		assert.Equal(t, at, *l.ConversionDate)

		types := []string{}
		for _, e := range l.GetDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Equal(t, []string{EventTypeLeadStatusChanged, EventTypeLeadConverted}, types)
	})

	t.Run("never overwritten", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusInstallationScheduled)
		first := baseTime.Add(-48 * time.Hour)
		l.ConversionDate = &first

		_, err := l.Transition(StatusCompleted, "sp-1", "", baseTime.Add(48*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, first, *l.ConversionDate)
		for _, e := range l.GetDomainEvents() {
			assert.NotEqual(t, EventTypeLeadConverted, e.EventType())
		}
	})

	t.Run("terminal retry keeps date", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedWon)
		date := *l.ConversionDate
		changed, err := l.Transition(StatusClosedWon, "sp-1", "", baseTime.Add(72*time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, date, *l.ConversionDate)
	})
}

// ============================================
// Contacts
// ============================================

func TestLead_PurchasedLeadNeverReached(t *testing.T) {
	l := newTestLead(t, func(p *NewLeadParams) {
		p.Source = SourceAttribution{Type: SourcePurchased, AcquisitionCost: dec("45")}
		p.Commission = CommissionTerms{SalespersonRate: decPtr("2.5")}
	})

	_, err := l.Transition(StatusContacted, "sp-7", "", baseTime.Add(time.Minute))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := l.Transition(StatusContacted, "sp-7", "", baseTime.Add(time.Duration(i+2)*time.Minute))
		assert.True(t, errors.Is(err, shared.ErrIllegalTransition))
	}

	for i := 0; i < 3; i++ {
		_, err := l.RecordContact(ContactRecord{Action: ActionContacted, Actor: "sp-7"}, baseTime.Add(time.Duration(i+5)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, StatusContacted, l.Status.Current)
	}
	assert.Equal(t, 3, l.History.CountAction(ActionContacted))

	_, err = l.Transition(StatusNotReachable, "sp-7", "no answer after 3 attempts", baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusNotReachable, l.Status.Current)
	assert.Equal(t, 2, l.History.CountAction(ActionStatusChanged))
	assert.Equal(t, 6, l.History.Len())
	assertMonotonic(t, l)
}

func TestLead_RecordContact(t *testing.T) {
	t.Run("outreach updates lastContact and links", func(t *testing.T) {
		l := newTestLead(t)
		at := baseTime.Add(time.Hour)
		entry, err := l.RecordContact(ContactRecord{
			Action:  ActionEmailSent,
			Actor:   "sp-1",
			Details: map[string]string{DetailEmailID: "mail-1"},
		}, at)
		require.NoError(t, err)
		assert.Equal(t, "Email sent", entry.Description)
		require.NotNil(t, l.LastContact)
		assert.Equal(t, at, *l.LastContact)
		assert.Equal(t, []string{"mail-1"}, l.EmailIDs)
		assert.Equal(t, StatusNew, l.Status.Current)
		assert.Equal(t, at, l.UpdatedAt)
	})

	t.Run("meeting and proposal ids are linked once", func(t *testing.T) {
		l := newTestLead(t)
		for i := 0; i < 2; i++ {
			_, err := l.RecordContact(ContactRecord{
				Action:  ActionMeetingScheduled,
				Details: map[string]string{DetailAppointmentID: "apt-1", DetailProposalID: "prop-1", DetailInvoiceID: "inv-1"},
			}, baseTime.Add(time.Hour))
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"apt-1"}, l.AppointmentIDs)
		assert.Equal(t, []string{"prop-1"}, l.ProposalIDs)
		assert.Equal(t, []string{"inv-1"}, l.InvoiceIDs)
	})

	t.Run("notes are appended", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.RecordContact(ContactRecord{Action: ActionNoteAdded, Description: "Roof faces south"}, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"Roof faces south"}, l.Notes)
		assert.Nil(t, l.LastContact)
	})

	t.Run("follow up sets nextFollowUp", func(t *testing.T) {
		l := newTestLead(t)
		next := baseTime.Add(7 * 24 * time.Hour)
		_, err := l.RecordContact(ContactRecord{Action: ActionFollowUpScheduled, NextFollowUp: &next}, baseTime.Add(time.Hour))
		require.NoError(t, err)
		require.NotNil(t, l.NextFollowUp)
		assert.Equal(t, next, *l.NextFollowUp)

		_, err = l.RecordContact(ContactRecord{Action: ActionFollowUpScheduled}, baseTime.Add(time.Hour))
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("allowed after terminal status", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedWon)
		_, err := l.RecordContact(ContactRecord{Action: ActionReferralSent, Details: map[string]string{DetailReferralCode: "REF-9"}}, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, StatusClosedWon, l.Status.Current)
	})

	t.Run("rejects status and unknown actions", func(t *testing.T) {
		l := newTestLead(t)
		for _, action := range []HistoryAction{ActionStatusChanged, ActionCreated, ActionProductAdded, "waved"} {
			_, err := l.RecordContact(ContactRecord{Action: action}, baseTime)
			assert.True(t, errors.Is(err, shared.ErrValidation), action)
		}
		_, err := l.RecordContact(ContactRecord{Action: ActionNoteAdded, Description: "  "}, baseTime)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, 1, l.History.Len())
	})
}

// ============================================
// Products
// ============================================

func TestLead_Products(t *testing.T) {
	t.Run("add then remove restores total exactly", func(t *testing.T) {
		l := newTestLead(t)
		before := l.TotalEstimatedValue

		line, err := l.AddProduct(ProductInput{Name: "Battery 10kWh", Category: CategoryBatteryStorage, EstimatedValue: dec("8999.99")}, "sp-1", baseTime.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, l.TotalEstimatedValue.Equal(dec("28999.99")))

		require.NoError(t, l.RemoveProduct(line.ID, "sp-1", baseTime.Add(2*time.Minute)))
		assert.True(t, l.TotalEstimatedValue.Equal(before))
		assert.Len(t, l.Products, 1)
		assert.Equal(t, 1, l.History.CountAction(ActionProductAdded))
		assert.Equal(t, 1, l.History.CountAction(ActionProductRemoved))
	})

	t.Run("total equals sum of items", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.AddProduct(ProductInput{Name: "Wallbox", Category: CategoryWallbox, EstimatedValue: dec("1200.50")}, "sp-1", baseTime)
		require.NoError(t, err)
		_, err = l.AddProduct(ProductInput{Name: "AC unit", Category: CategoryAirConditioning, EstimatedValue: dec("3000")}, "sp-1", baseTime)
		require.NoError(t, err)

		sum := dec("0")
		for _, p := range l.Products {
			sum = sum.Add(p.EstimatedValue)
		}
		assert.True(t, sum.Equal(l.TotalEstimatedValue))
	})

	t.Run("unknown product", func(t *testing.T) {
		l := newTestLead(t)
		err := l.RemoveProduct(uuid.New(), "sp-1", baseTime)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("no edits on terminal leads", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedLost)
		_, err := l.AddProduct(ProductInput{Name: "PV", Category: CategorySolar, EstimatedValue: dec("1")}, "sp-1", baseTime)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		err = l.RemoveProduct(l.Products[0].ID, "sp-1", baseTime)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestLead_RecordFinalValue(t *testing.T) {
	t.Run("rejected before contract_signed", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusNegotiation)
		err := l.RecordFinalValue(l.Products[0].ID, dec("19000"), "sp-1", baseTime.Add(time.Hour))
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Nil(t, l.TotalFinalValue)
	})

	t.Run("total final value requires every item", func(t *testing.T) {
		l := newTestLead(t)
		_, err := l.AddProduct(ProductInput{Name: "Battery", Category: CategoryBatteryStorage, EstimatedValue: dec("5000")}, "sp-1", baseTime)
		require.NoError(t, err)
		driveTo(t, l, StatusContractSigned)

		require.NoError(t, l.RecordFinalValue(l.Products[0].ID, dec("19000"), "sp-1", baseTime.Add(time.Hour)))
		assert.Nil(t, l.TotalFinalValue)

		require.NoError(t, l.RecordFinalValue(l.Products[1].ID, dec("4500"), "sp-1", baseTime.Add(2*time.Hour)))
		require.NotNil(t, l.TotalFinalValue)
		assert.True(t, l.TotalFinalValue.Equal(dec("23500")))
		assert.True(t, l.Value().Equal(dec("23500")))
	})

	t.Run("allowed on won terminal leads", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedWon)
		require.NoError(t, l.RecordFinalValue(l.Products[0].ID, dec("21000"), "sp-1", baseTime.Add(time.Hour)))
		assert.True(t, l.TotalFinalValue.Equal(dec("21000")))
	})

	t.Run("negative value", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusContractSigned)
		err := l.RecordFinalValue(l.Products[0].ID, dec("-1"), "sp-1", baseTime)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("unknown product", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusContractSigned)
		err := l.RecordFinalValue(uuid.New(), dec("1"), "sp-1", baseTime)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

// ============================================
// Priority, tags and commission
// ============================================

func TestLead_PriorityAndTags(t *testing.T) {
	l := newTestLead(t)

	changed, err := l.SetPriority(PriorityUrgent, "sp-1", baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PriorityUrgent, l.Priority)

	changed, err = l.SetPriority(PriorityUrgent, "sp-1", baseTime.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = l.SetPriority("critical", "sp-1", baseTime)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	added, err := l.AddTag("Roof-Check", "sp-1", baseTime.Add(3*time.Minute))
	require.NoError(t, err)
	assert.True(t, added)
	added, err = l.AddTag("roof-check", "sp-1", baseTime.Add(4*time.Minute))
	require.NoError(t, err)
	assert.False(t, added)
	_, err = l.AddTag("", "sp-1", baseTime)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = l.AddTag("a-first", "sp-1", baseTime.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"a-first", "roof-check"}, l.Tags)
	assert.True(t, l.HasTag("ROOF-CHECK"))
	assert.Equal(t, 4, l.History.Len())
}

func TestLead_CommissionLifecycle(t *testing.T) {
	t.Run("assess and settle", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedWon)

		breakdown, err := l.AssessCommission("finance", baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "700.00", breakdown.TotalCommission.StringFixed(2))
		require.NotNil(t, l.Commission.TotalCommissionDue)
		assert.True(t, l.Commission.TotalCommissionDue.Equal(dec("700")))

		payDate := baseTime.Add(30 * 24 * time.Hour)
		settled, err := l.SettleCommission(payDate, "finance", baseTime.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, settled)
		assert.True(t, l.Commission.CommissionPaid)
		assert.Equal(t, payDate, *l.Commission.PaymentDate)

		historyLen := l.History.Len()
		settled, err = l.SettleCommission(payDate.Add(time.Hour), "finance", baseTime.Add(3*time.Hour))
		require.NoError(t, err)
		assert.False(t, settled)
		assert.Equal(t, payDate, *l.Commission.PaymentDate)
		assert.Equal(t, historyLen, l.History.Len())

		_, err = l.AssessCommission("finance", baseTime.Add(4*time.Hour))
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		err = l.UpdateCommissionTerms(CommissionTermsUpdate{}, "finance", baseTime.Add(4*time.Hour))
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("settle requires assessment", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusCompleted)
		_, err := l.SettleCommission(baseTime, "finance", baseTime)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("settle requires won status", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedLost)
		l.Commission.TotalCommissionDue = decPtr("100")
		_, err := l.SettleCommission(baseTime, "finance", baseTime)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))

		_, err = l.AssessCommission("finance", baseTime)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("zero payment date uses mutation time", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedWon)
		_, err := l.AssessCommission("finance", baseTime.Add(time.Hour))
		require.NoError(t, err)
		at := baseTime.Add(2 * time.Hour)
		_, err = l.SettleCommission(time.Time{}, "finance", at)
		require.NoError(t, err)
		assert.Equal(t, at, *l.Commission.PaymentDate)
	})

	t.Run("updating terms clears the assessment", func(t *testing.T) {
		l := newTestLead(t)
		driveTo(t, l, StatusClosedWon)
		_, err := l.AssessCommission("finance", baseTime.Add(time.Hour))
		require.NoError(t, err)

		err = l.UpdateCommissionTerms(CommissionTermsUpdate{
			SalespersonID:   "sp-1",
			SalespersonRate: decPtr("4"),
			AffiliateID:     "aff-1",
			AffiliateRate:   decPtr("1"),
		}, "finance", baseTime.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Nil(t, l.Commission.TotalCommissionDue)
		assert.True(t, l.Commission.SalespersonRate.Equal(dec("4")))

		err = l.UpdateCommissionTerms(CommissionTermsUpdate{SalespersonID: "sp-1", SalespersonRate: decPtr("-1")}, "finance", baseTime.Add(3*time.Hour))
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

// ============================================
// Invariants across operation sequences
// ============================================

func TestLead_HistoryNeverShrinks(t *testing.T) {
	l := newTestLead(t)
	lengths := []int{l.History.Len()}
	record := func() { lengths = append(lengths, l.History.Len()) }

	clock := baseTime
	tick := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	_, _ = l.Transition(StatusContacted, "sp-1", "", tick())
	record()
	_, _ = l.Transition(StatusClosedWon, "sp-1", "", tick()) // illegal
	record()
	_, _ = l.RecordContact(ContactRecord{Action: ActionCallMade}, baseTime) // stale clock
	record()
	line, _ := l.AddProduct(ProductInput{Name: "Wallbox", Category: CategoryWallbox, EstimatedValue: dec("900")}, "sp-1", tick())
	record()
	_ = l.RemoveProduct(line.ID, "sp-1", tick())
	record()
	_, _ = l.SetPriority(PriorityHigh, "sp-1", tick())
	record()

	for i := 1; i < len(lengths); i++ {
		assert.GreaterOrEqual(t, lengths[i], lengths[i-1])
	}
	assert.Equal(t, 6, l.History.Len())
	assertMonotonic(t, l)
}

func TestLead_Clone(t *testing.T) {
	l := newTestLead(t, func(p *NewLeadParams) { p.Tags = []string{"vip"} })
	driveTo(t, l, StatusContractSigned)
	require.NoError(t, l.RecordFinalValue(l.Products[0].ID, dec("19500"), "sp-1", baseTime.Add(time.Hour)))

	c := l.Clone()
	assert.Equal(t, l.ID, c.ID)
	assert.Equal(t, l.History.Len(), c.History.Len())
	assert.Empty(t, c.GetDomainEvents())

	*c.Products[0].FinalValue = dec("1")
	c.Tags[0] = "changed"
	_, err := c.Transition(StatusClosedWon, "sp-1", "", baseTime.Add(2*time.Hour))
	require.NoError(t, err)

	assert.True(t, l.Products[0].FinalValue.Equal(dec("19500")))
	assert.Equal(t, "vip", l.Tags[0])
	assert.Equal(t, StatusContractSigned, l.Status.Current)
	assert.Nil(t, l.ConversionDate)
}
