package lead

import (
	"context"
	"strings"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/energyadmin/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service is the only component that mutates leads. Every mutation runs under
// a per-lead lock; domain events are published after the lock is released.
type Service struct {
	repo            lead.Repository
	eventPublisher  shared.EventPublisher
	locks           *keyedMutex
	clock           func() time.Time
	logger          *zap.Logger
	defaultCurrency valueobject.Currency
	phoneRegion     string
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used for server-assigned timestamps
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDefaultCurrency sets the currency of leads created without one
func WithDefaultCurrency(currency valueobject.Currency) Option {
	return func(s *Service) {
		if currency != "" {
			s.defaultCurrency = currency
		}
	}
}

// WithPhoneRegion sets the region used to parse national phone numbers
func WithPhoneRegion(region string) Option {
	return func(s *Service) {
		if region != "" {
			s.phoneRegion = region
		}
	}
}

// NewService creates a new lead Service
func NewService(repo lead.Repository, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		locks:           newKeyedMutex(),
		clock:           func() time.Time { return time.Now().UTC() },
		logger:          zap.NewNop(),
		defaultCurrency: valueobject.DefaultCurrency,
		phoneRegion:     valueobject.DefaultPhoneRegion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now reads the clock at the precision the store keeps
func (s *Service) now() time.Time {
	return storedTime(s.clock())
}

// storedTime drops sub-microsecond precision so a lead reads back exactly as
// it was written to a TIMESTAMPTZ column.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func storedTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := storedTime(*t)
	return &out
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create validates an intake and stores the new lead
func (s *Service) Create(ctx context.Context, intake LeadIntake) (_ *LeadResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "create",
		attribute.String("lead.source_type", intake.Source.Type),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	params, err := s.intakeParams(intake)
	if err != nil {
		return nil, err
	}
	params.Now = s.now()

	l, err := lead.NewLead(params)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, l); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrLeadID, l.ID.String()))

	s.logger.Debug("lead created",
		zap.String("lead_id", l.ID.String()),
		zap.String("source", string(l.Source.Type)),
		zap.String("actor", l.Status.ChangedBy),
	)
	s.publish(ctx, l.PullDomainEvents())

	response := ToLeadResponse(l)
	return &response, nil
}

func (s *Service) intakeParams(intake LeadIntake) (lead.NewLeadParams, error) {
	email, err := valueobject.NewEmail(intake.Contact.Email)
	if err != nil {
		return lead.NewLeadParams{}, shared.NewValidationError("%s", err.Error())
	}
	var phone valueobject.Phone
	if strings.TrimSpace(intake.Contact.Phone) != "" {
		phone, err = valueobject.NewPhone(intake.Contact.Phone, s.phoneRegion)
		if err != nil {
			return lead.NewLeadParams{}, shared.NewValidationError("%s", err.Error())
		}
	}
	a := intake.Contact.Address
	address, err := valueobject.NewAddress(a.City,
		valueobject.WithStreet(a.Street),
		valueobject.WithPostalCode(a.PostalCode),
		valueobject.WithState(a.State),
		valueobject.WithCountry(a.Country),
	)
	if err != nil {
		return lead.NewLeadParams{}, shared.NewValidationError("%s", err.Error())
	}

	currency := s.defaultCurrency
	if intake.Currency != "" {
		currency, err = valueobject.ParseCurrency(intake.Currency)
		if err != nil {
			return lead.NewLeadParams{}, shared.NewValidationError("%s", err.Error())
		}
	}

	params := lead.NewLeadParams{
		Contact: lead.Contact{
			FirstName: strings.TrimSpace(intake.Contact.FirstName),
			LastName:  strings.TrimSpace(intake.Contact.LastName),
			Email:     email,
			Phone:     phone,
			Address:   address,
		},
		Source: lead.SourceAttribution{
			Type:            lead.SourceType(intake.Source.Type),
			SourceID:        strings.TrimSpace(intake.Source.SourceID),
			SourceName:      strings.TrimSpace(intake.Source.SourceName),
			AcquisitionCost: intake.Source.AcquisitionCost,
			AffiliateCode:   strings.TrimSpace(intake.Source.AffiliateCode),
			CampaignID:      strings.TrimSpace(intake.Source.CampaignID),
		},
		Priority:     lead.Priority(intake.Priority),
		Currency:     currency,
		Notes:        intake.Notes,
		Tags:         intake.Tags,
		NextFollowUp: storedTimePtr(intake.NextFollowUp),
		Actor:        intake.Actor,
	}
	if c := intake.Commission; c != nil {
		params.Commission = lead.CommissionTerms{
			SalespersonID:   strings.TrimSpace(c.SalespersonID),
			SalespersonRate: c.SalespersonRate,
			AffiliateID:     strings.TrimSpace(c.AffiliateID),
			AffiliateRate:   c.AffiliateRate,
			LeadCost:        c.LeadCost,
		}
	}
	for _, p := range intake.Products {
		params.Products = append(params.Products, toProductInput(p))
	}
	return params, nil
}

func toProductInput(p ProductInput) lead.ProductInput {
	return lead.ProductInput{
		Name:           p.Name,
		Category:       lead.ProductCategory(p.Category),
		Type:           p.Type,
		EstimatedValue: p.EstimatedValue,
		Specifications: p.Specifications,
	}
}

// Transition moves a lead to target. Re-sending the current terminal status succeeds without change.
func (s *Service) Transition(ctx context.Context, leadID uuid.UUID, target lead.Status, actor, reason string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "transition", func(l *lead.Lead, now time.Time) error {
		_, err := l.Transition(target, actor, reason, now)
		return err
	})
}

// RecordContact appends a contact entry without changing the status
func (s *Service) RecordContact(ctx context.Context, leadID uuid.UUID, rec ContactRecord) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "record_contact", func(l *lead.Lead, now time.Time) error {
		_, err := l.RecordContact(lead.ContactRecord{
			Action:       lead.HistoryAction(rec.Action),
			Description:  rec.Description,
			Actor:        rec.Actor,
			Details:      rec.Details,
			NextFollowUp: storedTimePtr(rec.NextFollowUp),
		}, now)
		return err
	})
}

// RequestEmail records that an email was requested for the lead. Delivery is
// done by the notification service, which references the entry by emailID.
func (s *Service) RequestEmail(ctx context.Context, leadID uuid.UUID, emailID, template, actor string) (*LeadResponse, error) {
	emailID = strings.TrimSpace(emailID)
	if emailID == "" {
		return nil, shared.NewValidationError("Email id is required")
	}
	details := map[string]string{lead.DetailEmailID: emailID}
	description := "Email requested"
	if template = strings.TrimSpace(template); template != "" {
		details[lead.DetailTemplate] = template
		description = "Email requested with template " + template
	}
	return s.RecordContact(ctx, leadID, ContactRecord{
		Action:      string(lead.ActionEmailSent),
		Description: description,
		Details:     details,
		Actor:       actor,
	})
}

// UpdateCommissionTerms replaces the commission agreement of an unpaid lead
func (s *Service) UpdateCommissionTerms(ctx context.Context, leadID uuid.UUID, input CommissionTermsInput, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "update_commission", func(l *lead.Lead, now time.Time) error {
		return l.UpdateCommissionTerms(lead.CommissionTermsUpdate{
			SalespersonID:   input.SalespersonID,
			SalespersonRate: input.SalespersonRate,
			AffiliateID:     input.AffiliateID,
			AffiliateRate:   input.AffiliateRate,
			LeadCost:        input.LeadCost,
		}, actor, now)
	})
}

// AssessCommission fixes the commission due of a won lead
func (s *Service) AssessCommission(ctx context.Context, leadID uuid.UUID, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "assess_commission", func(l *lead.Lead, now time.Time) error {
		_, err := l.AssessCommission(actor, now)
		return err
	})
}

// SettleCommission marks the commission as paid. A nil payment date means "now".
func (s *Service) SettleCommission(ctx context.Context, leadID uuid.UUID, paymentDate *time.Time, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "settle_commission", func(l *lead.Lead, now time.Time) error {
		var date time.Time
		if paymentDate != nil {
			date = storedTime(*paymentDate)
		}
		_, err := l.SettleCommission(date, actor, now)
		return err
	})
}

// AddProduct adds a line item to an open lead
func (s *Service) AddProduct(ctx context.Context, leadID uuid.UUID, input ProductInput, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "add_product", func(l *lead.Lead, now time.Time) error {
		_, err := l.AddProduct(toProductInput(input), actor, now)
		return err
	})
}

// RemoveProduct removes a line item from an open lead
func (s *Service) RemoveProduct(ctx context.Context, leadID, productID uuid.UUID, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "remove_product", func(l *lead.Lead, now time.Time) error {
		return l.RemoveProduct(productID, actor, now)
	})
}

// UpdateProductFinalValue records the realized value of a line item
func (s *Service) UpdateProductFinalValue(ctx context.Context, leadID, productID uuid.UUID, value decimal.Decimal, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "final_value", func(l *lead.Lead, now time.Time) error {
		return l.RecordFinalValue(productID, value, actor, now)
	})
}

// SetPriority changes the priority of a lead
func (s *Service) SetPriority(ctx context.Context, leadID uuid.UUID, priority lead.Priority, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "set_priority", func(l *lead.Lead, now time.Time) error {
		_, err := l.SetPriority(priority, actor, now)
		return err
	})
}

// AddTag tags a lead
func (s *Service) AddTag(ctx context.Context, leadID uuid.UUID, tag, actor string) (*LeadResponse, error) {
	return s.mutateResponse(ctx, leadID, "add_tag", func(l *lead.Lead, now time.Time) error {
		_, err := l.AddTag(tag, actor, now)
		return err
	})
}

// Get retrieves a lead by ID
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (*LeadResponse, error) {
	l, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	response := ToLeadResponse(l)
	return &response, nil
}

// List retrieves a page of leads with filtering
func (s *Service) List(ctx context.Context, req ListLeadsRequest) ([]LeadListItemResponse, int64, error) {
	filter, err := toListFilter(req)
	if err != nil {
		return nil, 0, err
	}
	leads, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]LeadListItemResponse, len(leads))
	for i, l := range leads {
		items[i] = ToLeadListItemResponse(l)
	}
	return items, total, nil
}

// sortable list columns
var listOrderColumns = map[string]bool{
	"created_at":            true,
	"updated_at":            true,
	"total_estimated_value": true,
	"last_name":             true,
	"status":                true,
}

func toListFilter(req ListLeadsRequest) (lead.ListFilter, error) {
	f := lead.ListFilter{Filter: shared.DefaultFilter()}
	if req.Page > 0 {
		f.Page = req.Page
	}
	if req.PageSize > 0 {
		f.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		if !listOrderColumns[req.OrderBy] {
			return lead.ListFilter{}, shared.NewValidationError("Cannot order by %q", req.OrderBy)
		}
		f.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		if req.OrderDir != "asc" && req.OrderDir != "desc" {
			return lead.ListFilter{}, shared.NewValidationError("Order direction must be asc or desc")
		}
		f.OrderDir = req.OrderDir
	}
	f.Search = strings.TrimSpace(req.Search)

	for _, raw := range req.Statuses {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			status, ok := lead.ParseStatus(part)
			if !ok {
				return lead.ListFilter{}, shared.NewValidationError("Unknown status %q", part)
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	if req.Source != "" {
		f.SourceType = lead.SourceType(req.Source)
		if !f.SourceType.IsValid() {
			return lead.ListFilter{}, shared.NewValidationError("Unknown lead source %q", req.Source)
		}
	}
	if req.Priority != "" {
		f.Priority = lead.Priority(req.Priority)
		if !f.Priority.IsValid() {
			return lead.ListFilter{}, shared.NewValidationError("Unknown priority %q", req.Priority)
		}
	}
	f.SalespersonID = strings.TrimSpace(req.SalespersonID)
	f.Tag = strings.ToLower(strings.TrimSpace(req.Tag))
	f.CreatedFrom = req.CreatedFrom
	f.CreatedTo = req.CreatedTo
	if f.CreatedFrom != nil && f.CreatedTo != nil && !f.CreatedFrom.Before(*f.CreatedTo) {
		return lead.ListFilter{}, shared.NewValidationError("created_from must be before created_to")
	}
	return f, nil
}

// AllowedTransitions returns the statuses the lead may move to next
func (s *Service) AllowedTransitions(ctx context.Context, leadID uuid.UUID) (*AllowedTransitionsResponse, error) {
	l, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	targets := l.Status.Current.AllowedTransitions()
	allowed := make([]string, len(targets))
	for i, t := range targets {
		allowed[i] = string(t)
	}
	return &AllowedTransitionsResponse{
		LeadID:   l.ID,
		Current:  string(l.Status.Current),
		Terminal: l.IsTerminal(),
		Allowed:  allowed,
	}, nil
}

// CalculateCommission runs the commission calculator on the stored lead
func (s *Service) CalculateCommission(ctx context.Context, leadID uuid.UUID) (*CommissionBreakdownResponse, error) {
	l, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	response := ToCommissionBreakdownResponse(l, lead.CalculateCommission(l))
	return &response, nil
}

// Snapshot returns a consistent copy of every lead for reporting
func (s *Service) Snapshot(ctx context.Context) ([]*lead.Lead, error) {
	return s.repo.Snapshot(ctx)
}

func (s *Service) mutateResponse(ctx context.Context, leadID uuid.UUID, op string, fn func(*lead.Lead, time.Time) error) (*LeadResponse, error) {
	l, err := s.mutate(ctx, leadID, op, fn)
	if err != nil {
		return nil, err
	}
	response := ToLeadResponse(l)
	return &response, nil
}

// mutate loads, changes and saves one lead under its lock. Operations that
// append no history entry are no-ops and are not saved.
func (s *Service) mutate(ctx context.Context, leadID uuid.UUID, op string, fn func(*lead.Lead, time.Time) error) (_ *lead.Lead, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", op,
		attribute.String(telemetry.SpanAttrLeadID, leadID.String()),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(leadID)
	defer unlock()

	l, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	before := l.History.Len()
	if err := fn(l, s.now()); err != nil {
		s.logger.Debug("lead mutation rejected",
			zap.String("lead_id", leadID.String()),
			zap.String("op", op),
			zap.String("code", shared.CodeOf(err)),
		)
		return nil, err
	}
	if l.History.Len() == before {
		l.ClearDomainEvents()
		return l, nil
	}
	if err := s.repo.SaveWithLock(ctx, l); err != nil {
		return nil, err
	}
	events := l.PullDomainEvents()
	unlock()
	span.SetAttributes(attribute.String(telemetry.SpanAttrStatus, string(l.Status.Current)))

	s.logger.Debug("lead mutated",
		zap.String("lead_id", leadID.String()),
		zap.String("op", op),
		zap.String("status", string(l.Status.Current)),
		zap.Int("history_len", l.History.Len()),
	)
	s.publish(ctx, events)
	return l, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		// Event handling is best-effort; the mutation is already stored
		s.logger.Warn("failed to publish lead events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}
