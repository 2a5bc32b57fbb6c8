package lead

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var startTime = time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// steppingClock returns a clock that advances one minute per call
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := startTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func testIntake() LeadIntake {
	return LeadIntake{
		Contact: ContactInput{
			FirstName: "Anna",
			LastName:  "Schmidt",
			Email:     "anna.schmidt@example.de",
			Phone:     "030 123456",
			Address: AddressInput{
				Street:     "Sonnenweg 4",
				City:       "Munich",
				PostalCode: "80331",
			},
		},
		Source: SourceInput{Type: "salesperson", SourceID: "sp-1"},
		Commission: &CommissionTermsInput{
			SalespersonID:   "sp-1",
			SalespersonRate: decPtr("3.5"),
		},
		Products: []ProductInput{
			{Name: "PV 10kWp", Category: "solar", EstimatedValue: dec("20000")},
		},
	}
}

func newTestService(opts ...Option) (*Service, *persistence.MemoryLeadRepository) {
	repo := persistence.NewMemoryLeadRepository()
	opts = append([]Option{WithClock(steppingClock())}, opts...)
	return NewService(repo, opts...), repo
}

func createLead(t *testing.T, svc *Service) uuid.UUID {
	t.Helper()
	resp, err := svc.Create(context.Background(), testIntake())
	require.NoError(t, err)
	return resp.ID
}

func moveTo(t *testing.T, svc *Service, id uuid.UUID, path ...lead.Status) {
	t.Helper()
	for _, s := range path {
		_, err := svc.Transition(context.Background(), id, s, "sp-1", "")
		require.NoError(t, err, "transition to %s", s)
	}
}

// MockLeadRepository is a mock implementation of lead.Repository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lead.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAll(ctx context.Context, filter lead.ListFilter) ([]*lead.Lead, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*lead.Lead), args.Get(1).(int64), args.Error(2)
}

func (m *MockLeadRepository) Save(ctx context.Context, l *lead.Lead) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLeadRepository) SaveWithLock(ctx context.Context, l *lead.Lead) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLeadRepository) Snapshot(ctx context.Context) ([]*lead.Lead, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*lead.Lead), args.Error(1)
}

func (m *MockLeadRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

var _ lead.Repository = (*MockLeadRepository)(nil)
var _ shared.EventPublisher = (*MockEventPublisher)(nil)
