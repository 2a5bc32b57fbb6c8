package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
)

// Metric attribute keys
const (
	AttrSourceType = attribute.Key("source_type")
	AttrFromStatus = attribute.Key("from_status")
	AttrToStatus   = attribute.Key("to_status")
	AttrCurrency   = attribute.Key("currency")
)

// LeadMetrics turns lead events into counters. It is an event bus handler.
type LeadMetrics struct {
	created        metric.Int64Counter
	transitions    metric.Int64Counter
	conversions    metric.Int64Counter
	assessed       metric.Int64Counter
	assessedAmount metric.Float64Counter
	settled        metric.Int64Counter
	contactsLogged metric.Int64Counter
}

// NewLeadMetrics creates the lead instruments on meter.
func NewLeadMetrics(meter metric.Meter) (*LeadMetrics, error) {
	m := &LeadMetrics{}
	var err error

	if m.created, err = meter.Int64Counter("leads.created",
		metric.WithDescription("Leads created from intakes"),
		metric.WithUnit("{lead}")); err != nil {
		return nil, fmt.Errorf("failed to create leads.created counter: %w", err)
	}
	if m.transitions, err = meter.Int64Counter("leads.status_transitions",
		metric.WithDescription("Accepted status transitions"),
		metric.WithUnit("{transition}")); err != nil {
		return nil, fmt.Errorf("failed to create leads.status_transitions counter: %w", err)
	}
	if m.conversions, err = meter.Int64Counter("leads.conversions",
		metric.WithDescription("Leads reaching a won status for the first time"),
		metric.WithUnit("{lead}")); err != nil {
		return nil, fmt.Errorf("failed to create leads.conversions counter: %w", err)
	}
	if m.assessed, err = meter.Int64Counter("leads.commission.assessed",
		metric.WithDescription("Commission assessments"),
		metric.WithUnit("{assessment}")); err != nil {
		return nil, fmt.Errorf("failed to create leads.commission.assessed counter: %w", err)
	}
	if m.assessedAmount, err = meter.Float64Counter("leads.commission.assessed_amount",
		metric.WithDescription("Total commission due at assessment")); err != nil {
		return nil, fmt.Errorf("failed to create leads.commission.assessed_amount counter: %w", err)
	}
	if m.settled, err = meter.Int64Counter("leads.commission.settled",
		metric.WithDescription("Commissions marked paid"),
		metric.WithUnit("{settlement}")); err != nil {
		return nil, fmt.Errorf("failed to create leads.commission.settled counter: %w", err)
	}
	if m.contactsLogged, err = meter.Int64Counter("leads.contacts_recorded",
		metric.WithDescription("Contact history entries appended"),
		metric.WithUnit("{entry}")); err != nil {
		return nil, fmt.Errorf("failed to create leads.contacts_recorded counter: %w", err)
	}

	return m, nil
}

// EventTypes implements shared.EventHandler.
func (m *LeadMetrics) EventTypes() []string {
	return []string{
		lead.EventTypeLeadCreated,
		lead.EventTypeLeadStatusChanged,
		lead.EventTypeLeadConverted,
		lead.EventTypeLeadContactRecorded,
		lead.EventTypeLeadCommissionAssessed,
		lead.EventTypeLeadCommissionSettled,
	}
}

// Handle implements shared.EventHandler. Unknown events are ignored.
func (m *LeadMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *lead.LeadCreatedEvent:
		m.created.Add(ctx, 1, metric.WithAttributes(AttrSourceType.String(string(e.SourceType))))
	case *lead.LeadStatusChangedEvent:
		m.transitions.Add(ctx, 1, metric.WithAttributes(
			AttrFromStatus.String(string(e.PreviousStatus)),
			AttrToStatus.String(string(e.NewStatus)),
		))
	case *lead.LeadConvertedEvent:
		m.conversions.Add(ctx, 1, metric.WithAttributes(AttrToStatus.String(string(e.Status))))
	case *lead.LeadContactRecordedEvent:
		m.contactsLogged.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(e.Action))))
	case *lead.LeadCommissionAssessedEvent:
		attrs := metric.WithAttributes(AttrCurrency.String(e.Currency))
		m.assessed.Add(ctx, 1, attrs)
		m.assessedAmount.Add(ctx, e.TotalCommissionDue.InexactFloat64(), attrs)
	case *lead.LeadCommissionSettledEvent:
		m.settled.Add(ctx, 1)
	}
	return nil
}

var _ shared.EventHandler = (*LeadMetrics)(nil)
