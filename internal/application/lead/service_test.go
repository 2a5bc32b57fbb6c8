package lead

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestService_Create(t *testing.T) {
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == lead.EventTypeLeadCreated
	})).Return(nil).Once()

	svc, repo := newTestService()
	svc.SetEventPublisher(publisher)

	resp, err := svc.Create(context.Background(), testIntake())
	require.NoError(t, err)

	assert.Equal(t, "new", resp.Status.Current)
	assert.Equal(t, "sp-1", resp.Status.ChangedBy)
	assert.Equal(t, "medium", resp.Priority)
	assert.Equal(t, "EUR", resp.Currency)
	assert.Equal(t, "+4930123456", resp.Contact.Phone)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "created", resp.History[0].Action)
	assert.True(t, dec("20000").Equal(resp.TotalEstimatedValue))

	exists, err := repo.Exists(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	publisher.AssertExpectations(t)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LeadIntake)
	}{
		{"invalid email", func(in *LeadIntake) { in.Contact.Email = "not-an-email" }},
		{"invalid phone", func(in *LeadIntake) { in.Contact.Phone = "12" }},
		{"missing city", func(in *LeadIntake) { in.Contact.Address.City = "" }},
		{"unknown source", func(in *LeadIntake) { in.Source.Type = "billboard" }},
		{"malformed currency", func(in *LeadIntake) { in.Currency = "E1" }},
		{"unrecognised currency", func(in *LeadIntake) { in.Currency = "ZZZ" }},
		{"unknown priority", func(in *LeadIntake) { in.Priority = "asap" }},
		{"rate above 100", func(in *LeadIntake) { in.Commission.SalespersonRate = decPtr("120") }},
		{"unknown category", func(in *LeadIntake) { in.Products[0].Category = "roof" }},
		{"acquisition cost beyond four decimals", func(in *LeadIntake) { in.Source.AcquisitionCost = dec("10.12345") }},
		{"rate beyond four decimals", func(in *LeadIntake) { in.Commission.AffiliateRate = decPtr("1.00005") }},
		{"estimated value overflows storage", func(in *LeadIntake) { in.Products[0].EstimatedValue = dec("100000000000000") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockLeadRepository)
			svc := NewService(repo, WithClock(steppingClock()))

			intake := testIntake()
			tt.mutate(&intake)
			resp, err := svc.Create(context.Background(), intake)

			assert.Nil(t, resp)
			assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_AutomatedSourceUsesSystemActor(t *testing.T) {
	svc, _ := newTestService()
	intake := testIntake()
	intake.Source = SourceInput{Type: "purchased", SourceName: "LeadMarket", AcquisitionCost: dec("45")}
	intake.Commission = nil

	resp, err := svc.Create(context.Background(), intake)
	require.NoError(t, err)
	assert.Equal(t, lead.SystemActor, resp.Status.ChangedBy)
	require.NotNil(t, resp.Commission.LeadCost)
	assert.True(t, dec("45").Equal(*resp.Commission.LeadCost))
}

func TestService_Transition(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)

	resp, err := svc.Transition(ctx, id, lead.StatusContacted, "sp-1", "first call")
	require.NoError(t, err)
	assert.Equal(t, "contacted", resp.Status.Current)
	assert.Equal(t, "first call", resp.Status.Reason)
	assert.Equal(t, 2, resp.Version)
	require.Len(t, resp.History, 2)
	assert.Equal(t, "new", resp.History[1].PreviousStatus)
	assert.Equal(t, "contacted", resp.History[1].NewStatus)

	_, err = svc.Transition(ctx, id, lead.StatusClosedWon, "sp-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrIllegalTransition))

	stored, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.History, 2, "rejected transitions leave no trace")
	assert.Equal(t, 2, stored.Version)
}

func TestService_Transition_Conversion(t *testing.T) {
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	svc, _ := newTestService()
	svc.SetEventPublisher(publisher)
	id := createLead(t, svc)

	moveTo(t, svc, id, lead.StatusContacted, lead.StatusQualified, lead.StatusProposalSent,
		lead.StatusNegotiation, lead.StatusContractSigned)
	resp, err := svc.Transition(context.Background(), id, lead.StatusClosedWon, "sp-1", "")
	require.NoError(t, err)
	require.NotNil(t, resp.ConversionDate)
	assert.Equal(t, resp.Status.LastChanged, *resp.ConversionDate)

	publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 2 &&
			events[0].EventType() == lead.EventTypeLeadStatusChanged &&
			events[1].EventType() == lead.EventTypeLeadConverted
	}))
}

func TestService_Transition_TerminalRepeatIsNoop(t *testing.T) {
	svc, _ := newTestService()
	id := createLead(t, svc)
	moveTo(t, svc, id, lead.StatusNotReachable, lead.StatusClosedLost)

	stored, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	repo := new(MockLeadRepository)
	l, err := svc.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	repo.On("FindByID", mock.Anything, id).Return(l, nil)
	noopSvc := NewService(repo, WithClock(steppingClock()))

	resp, err := noopSvc.Transition(context.Background(), id, lead.StatusClosedLost, "sp-2", "again")
	require.NoError(t, err)
	assert.Len(t, resp.History, len(stored.History))
	assert.Equal(t, stored.Status.ChangedBy, resp.Status.ChangedBy)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestService_Transition_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Transition(context.Background(), uuid.New(), lead.StatusContacted, "sp-1", "")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestService_ConcurrentTransitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)
	moveTo(t, svc, id, lead.StatusContacted)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		target := lead.StatusQualified
		if i%2 == 1 {
			target = lead.StatusNotReachable
		}
		wg.Add(1)
		go func(i int, target lead.Status) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, id, target, "sp-1", "")
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, shared.CodeIllegalTransition, shared.CodeOf(err))
	}
	assert.Equal(t, 1, succeeded)

	stored, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored.History, 3)
	last := stored.History[2]
	assert.Equal(t, "contacted", last.PreviousStatus)
	assert.Equal(t, stored.Status.Current, last.NewStatus)
	assert.Equal(t, 0, svc.locks.size())
}

func TestService_Create_PurchasedLeadNeverReached(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	intake := testIntake()
	intake.Source = SourceInput{Type: "purchased", AcquisitionCost: dec("45")}
	intake.Commission = &CommissionTermsInput{SalespersonRate: decPtr("2.5")}

	resp, err := svc.Create(ctx, intake)
	require.NoError(t, err)
	assert.Equal(t, "purchased", resp.Source.Type)
	assert.Empty(t, resp.Commission.SalespersonID)
	require.NotNil(t, resp.Commission.SalespersonRate)
	assert.True(t, dec("2.5").Equal(*resp.Commission.SalespersonRate))

	moveTo(t, svc, resp.ID, lead.StatusContacted)
	for i := 0; i < 3; i++ {
		_, err := svc.RecordContact(ctx, resp.ID, ContactRecord{Action: "call_made", Actor: "sp-1"})
		require.NoError(t, err)
	}
	resp, err = svc.Transition(ctx, resp.ID, lead.StatusNotReachable, "sp-1", "no answer after 3 attempts")
	require.NoError(t, err)

	assert.Equal(t, "not_reachable", resp.Status.Current)
	assert.Nil(t, resp.ConversionDate)
	require.Len(t, resp.History, 6)
	for i := 1; i < len(resp.History); i++ {
		assert.False(t, resp.History[i].Timestamp.Before(resp.History[i-1].Timestamp))
	}

	breakdown, err := svc.CalculateCommission(ctx, resp.ID)
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(breakdown.SalesCommission))
	assert.True(t, dec("19455").Equal(breakdown.NetRevenue))
}

func TestService_Create_CurrencyMinorUnit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	intake := testIntake()
	intake.Currency = "jpy"
	intake.Commission = &CommissionTermsInput{SalespersonID: "sp-1", SalespersonRate: decPtr("3.33")}
	intake.Products = []ProductInput{{Name: "Wallbox", Category: "wallbox", EstimatedValue: dec("1001")}}

	resp, err := svc.Create(ctx, intake)
	require.NoError(t, err)
	assert.Equal(t, "JPY", resp.Currency)

	breakdown, err := svc.CalculateCommission(ctx, resp.ID)
	require.NoError(t, err)
	assert.True(t, dec("33").Equal(breakdown.SalesCommission), breakdown.SalesCommission.String())
	assert.True(t, dec("968").Equal(breakdown.NetRevenue))
	assert.Equal(t, int64(33), breakdown.MinorUnits.SalesCommission)
	assert.Equal(t, int32(0), breakdown.MinorUnits.Places)
}

func TestService_TimestampsKeepStoredPrecision(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	clock := func() time.Time { return time.Date(2025, 6, 1, 11, 0, 0, 123456789, berlin) }
	svc, repo := newTestService(WithClock(clock))

	followUp := time.Date(2025, 6, 3, 9, 30, 0, 999999999, time.UTC)
	intake := testIntake()
	intake.NextFollowUp = &followUp

	resp, err := svc.Create(context.Background(), intake)
	require.NoError(t, err)

	want := time.Date(2025, 6, 1, 9, 0, 0, 123456000, time.UTC)
	assert.True(t, want.Equal(resp.CreatedAt), "created at %s", resp.CreatedAt)
	assert.True(t, want.Equal(resp.History[0].Timestamp))
	require.NotNil(t, resp.NextFollowUp)
	assert.Equal(t, 999999000, resp.NextFollowUp.Nanosecond())

	stored, err := repo.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.True(t, want.Equal(stored.CreatedAt))
	assert.Equal(t, time.UTC, stored.CreatedAt.Location())
}

func TestService_RecordContact(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)

	resp, err := svc.RecordContact(ctx, id, ContactRecord{
		Action:  "call_made",
		Actor:   "sp-1",
		Details: map[string]string{lead.DetailAppointmentID: "apt-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", resp.Status.Current)
	require.NotNil(t, resp.LastContact)
	assert.Equal(t, []string{"apt-7"}, resp.AppointmentIDs)
	assert.Equal(t, "Call made", resp.History[1].Description)

	_, err = svc.RecordContact(ctx, id, ContactRecord{Action: "status_changed"})
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))

	_, err = svc.RecordContact(ctx, id, ContactRecord{Action: "note_added"})
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
}

func TestService_RequestEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)

	resp, err := svc.RequestEmail(ctx, id, "mail-42", "welcome", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mail-42"}, resp.EmailIDs)
	entry := resp.History[len(resp.History)-1]
	assert.Equal(t, "email_sent", entry.Action)
	assert.Equal(t, lead.SystemActor, entry.PerformedBy)
	assert.Equal(t, "welcome", entry.Details[lead.DetailTemplate])
	assert.Equal(t, "Email requested with template welcome", entry.Description)

	_, err = svc.RequestEmail(ctx, id, "  ", "welcome", "")
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
}

func TestService_CommissionFlow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)

	_, err := svc.AssessCommission(ctx, id, "finance")
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))

	moveTo(t, svc, id, lead.StatusContacted, lead.StatusQualified, lead.StatusProposalSent,
		lead.StatusNegotiation, lead.StatusContractSigned)

	stored, err := svc.Get(ctx, id)
	require.NoError(t, err)
	productID := stored.Products[0].ID
	resp, err := svc.UpdateProductFinalValue(ctx, id, productID, dec("18000"), "sp-1")
	require.NoError(t, err)
	require.NotNil(t, resp.TotalFinalValue)
	assert.True(t, dec("18000").Equal(*resp.TotalFinalValue))

	moveTo(t, svc, id, lead.StatusClosedWon)

	breakdown, err := svc.CalculateCommission(ctx, id)
	require.NoError(t, err)
	assert.True(t, breakdown.UsesFinalValue)
	assert.True(t, dec("630").Equal(breakdown.SalesCommission))
	assert.True(t, dec("17370").Equal(breakdown.NetRevenue))
	assert.Equal(t, int64(63000), breakdown.MinorUnits.TotalCommission)

	resp, err = svc.AssessCommission(ctx, id, "finance")
	require.NoError(t, err)
	require.NotNil(t, resp.Commission.TotalCommissionDue)
	assert.True(t, dec("630").Equal(*resp.Commission.TotalCommissionDue))

	paidAt := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	resp, err = svc.SettleCommission(ctx, id, &paidAt, "finance")
	require.NoError(t, err)
	assert.True(t, resp.Commission.CommissionPaid)
	require.NotNil(t, resp.Commission.PaymentDate)
	assert.True(t, paidAt.Equal(*resp.Commission.PaymentDate))
	settledLen := len(resp.History)

	resp, err = svc.SettleCommission(ctx, id, nil, "finance")
	require.NoError(t, err)
	assert.Len(t, resp.History, settledLen)
	assert.True(t, paidAt.Equal(*resp.Commission.PaymentDate))

	_, err = svc.UpdateCommissionTerms(ctx, id, CommissionTermsInput{SalespersonID: "sp-1", SalespersonRate: decPtr("4")}, "finance")
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
}

func TestService_Products(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)

	resp, err := svc.AddProduct(ctx, id, ProductInput{Name: "Battery 10kWh", Category: "battery_storage", EstimatedValue: dec("8000")}, "sp-1")
	require.NoError(t, err)
	require.Len(t, resp.Products, 2)
	assert.True(t, dec("28000").Equal(resp.TotalEstimatedValue))

	resp, err = svc.RemoveProduct(ctx, id, resp.Products[0].ID, "sp-1")
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Battery 10kWh", resp.Products[0].Name)
	assert.True(t, dec("8000").Equal(resp.TotalEstimatedValue))

	_, err = svc.RemoveProduct(ctx, id, uuid.New(), "sp-1")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = svc.UpdateProductFinalValue(ctx, id, resp.Products[0].ID, dec("7500"), "sp-1")
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
}

func TestService_PriorityAndTags(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := createLead(t, svc)

	resp, err := svc.SetPriority(ctx, id, lead.PriorityHigh, "sp-1")
	require.NoError(t, err)
	assert.Equal(t, "high", resp.Priority)
	version := resp.Version

	resp, err = svc.SetPriority(ctx, id, lead.PriorityHigh, "sp-1")
	require.NoError(t, err)
	assert.Equal(t, version, resp.Version, "unchanged priority is not saved")

	resp, err = svc.AddTag(ctx, id, "Roof-South", "sp-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"roof-south"}, resp.Tags)

	_, err = svc.SetPriority(ctx, id, lead.Priority("asap"), "sp-1")
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
}

func TestService_AllowedTransitions(t *testing.T) {
	svc, _ := newTestService()
	id := createLead(t, svc)

	resp, err := svc.AllowedTransitions(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new", resp.Current)
	assert.False(t, resp.Terminal)
	assert.Equal(t, []string{"contacted", "not_reachable"}, resp.Allowed)
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	first := createLead(t, svc)
	second := createLead(t, svc)
	createLead(t, svc)
	moveTo(t, svc, first, lead.StatusContacted)
	moveTo(t, svc, second, lead.StatusNotReachable)

	items, total, err := svc.List(ctx, ListLeadsRequest{Statuses: []string{"contacted,not_reachable"}, OrderBy: "created_at", OrderDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, first, items[0].ID)
	assert.Equal(t, second, items[1].ID)

	items, total, err = svc.List(ctx, ListLeadsRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 1)
}

func TestService_List_Validation(t *testing.T) {
	from := startTime.Add(time.Hour)
	to := startTime

	tests := []struct {
		name string
		req  ListLeadsRequest
	}{
		{"order column", ListLeadsRequest{OrderBy: "email"}},
		{"order direction", ListLeadsRequest{OrderDir: "up"}},
		{"status", ListLeadsRequest{Statuses: []string{"new,won"}}},
		{"source", ListLeadsRequest{Source: "billboard"}},
		{"priority", ListLeadsRequest{Priority: "asap"}},
		{"created window", ListLeadsRequest{CreatedFrom: &from, CreatedTo: &to}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockLeadRepository)
			svc := NewService(repo)

			_, _, err := svc.List(context.Background(), tt.req)
			assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
			repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
		})
	}
}

func TestService_List_FilterMapping(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f lead.ListFilter) bool {
		return f.Page == 1 && f.PageSize == 20 &&
			len(f.Statuses) == 1 && f.Statuses[0] == lead.StatusQualified &&
			f.Tag == "roof-south" && f.SalespersonID == "sp-1"
	})).Return([]*lead.Lead{}, int64(0), nil).Once()
	svc := NewService(repo)

	items, total, err := svc.List(context.Background(), ListLeadsRequest{
		Statuses:      []string{"qualified"},
		Tag:           " Roof-South ",
		SalespersonID: "sp-1",
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	repo.AssertExpectations(t)
}

type slowHandler struct {
	release chan struct{}
	handled chan string
}

func (h *slowHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	<-h.release
	h.handled <- e.EventType()
	return nil
}

func (h *slowHandler) EventTypes() []string {
	return []string{lead.EventTypeLeadStatusChanged}
}

func TestService_TransitionDoesNotWaitForEventHandlers(t *testing.T) {
	svc, _ := newTestService()
	id := createLead(t, svc)

	bus := event.NewInMemoryEventBus(zap.NewNop())
	h := &slowHandler{release: make(chan struct{}), handled: make(chan string, 1)}
	bus.Subscribe(h)
	require.NoError(t, bus.Start(context.Background()))
	svc.SetEventPublisher(bus)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Transition(context.Background(), id, lead.StatusContacted, "sp-1", "")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("transition waited for the event handler")
	}

	close(h.release)
	require.NoError(t, bus.Stop(context.Background()))
	assert.Equal(t, lead.EventTypeLeadStatusChanged, <-h.handled)
}

func TestService_PublishFailureIsLogged(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	svc, _ := newTestService(WithLogger(zap.New(core)))
	svc.SetEventPublisher(publisher)
	id := createLead(t, svc)

	resp, err := svc.Transition(context.Background(), id, lead.StatusContacted, "sp-1", "")
	require.NoError(t, err)
	assert.Equal(t, "contacted", resp.Status.Current)
	assert.Equal(t, 2, recorded.FilterMessage("failed to publish lead events").Len())
}

func TestService_SaveConflictIsReturned(t *testing.T) {
	svc, _ := newTestService()
	id := createLead(t, svc)
	l, err := svc.repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	repo := new(MockLeadRepository)
	repo.On("FindByID", mock.Anything, id).Return(l, nil)
	repo.On("SaveWithLock", mock.Anything, l).Return(shared.ErrConcurrencyConflict)
	conflictSvc := NewService(repo, WithClock(steppingClock()))

	_, err = conflictSvc.Transition(context.Background(), id, lead.StatusContacted, "sp-1", "")
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
}

func TestService_CancelledContext(t *testing.T) {
	svc, _ := newTestService()
	id := createLead(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Transition(ctx, id, lead.StatusContacted, "sp-1", "")
	assert.ErrorIs(t, err, context.Canceled)
}
