// Package report computes dashboard figures over a snapshot of leads.
// Every function is read-only and safe on empty input. Monetary figures add
// raw amounts, so callers pass leads of one currency (see ForCurrency).
package report

import (
	"sort"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// IsZero reports whether no window was given
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Performer is the salesperson with the highest estimated pipeline value
type Performer struct {
	SalespersonID string          `json:"salespersonId"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	LeadCount     int             `json:"leadCount"`
	Found         bool            `json:"found"`
}

// NoPerformer is returned when no lead has a salesperson
var NoPerformer = Performer{TotalValue: decimal.Zero}

// ForCurrency returns the leads denominated in currency. Leads without a
// currency count as the default currency.
func ForCurrency(leads []*lead.Lead, currency valueobject.Currency) []*lead.Lead {
	out := make([]*lead.Lead, 0, len(leads))
	for _, l := range leads {
		if leadCurrency(l) == currency {
			out = append(out, l)
		}
	}
	return out
}

// CountByCurrency counts leads per currency
func CountByCurrency(leads []*lead.Lead) map[valueobject.Currency]int {
	counts := make(map[valueobject.Currency]int)
	for _, l := range leads {
		counts[leadCurrency(l)]++
	}
	return counts
}

func leadCurrency(l *lead.Lead) valueobject.Currency {
	if l.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return l.Currency
}

// CountByStatus counts leads per status
func CountByStatus(leads []*lead.Lead) map[lead.Status]int {
	counts := make(map[lead.Status]int)
	for _, l := range leads {
		counts[l.Status.Current]++
	}
	return counts
}

// CountBySource counts leads per source type
func CountBySource(leads []*lead.Lead) map[lead.SourceType]int {
	counts := make(map[lead.SourceType]int)
	for _, l := range leads {
		counts[l.Source.Type]++
	}
	return counts
}

// ConversionRate returns the share of closed_won leads in percent, 0 for no leads
func ConversionRate(leads []*lead.Lead) decimal.Decimal {
	if len(leads) == 0 {
		return decimal.Zero
	}
	won := 0
	for _, l := range leads {
		if l.Status.Current == lead.StatusClosedWon {
			won++
		}
	}
	return decimal.NewFromInt(int64(won)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(len(leads)))).
		RoundBank(2)
}

// RevenueInWindow sums the final value of closed_won leads converted inside the window.
// Leads without a final value contribute nothing.
func RevenueInWindow(leads []*lead.Lead, start, end time.Time) decimal.Decimal {
	w := Window{Start: start, End: end}
	total := decimal.Zero
	for _, l := range leads {
		if l.Status.Current != lead.StatusClosedWon || l.ConversionDate == nil || l.TotalFinalValue == nil {
			continue
		}
		if w.Contains(*l.ConversionDate) {
			total = total.Add(*l.TotalFinalValue)
		}
	}
	return total
}

// CommissionTotals sums the total commission over all leads
func CommissionTotals(leads []*lead.Lead) decimal.Decimal {
	total := decimal.Zero
	for _, l := range leads {
		total = total.Add(lead.CalculateCommission(l).TotalCommission.Amount())
	}
	return total
}

// TopPerformer returns the salesperson with the largest summed estimated value.
// Ties go to the lexicographically smallest id.
func TopPerformer(leads []*lead.Lead) Performer {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, l := range leads {
		id := l.Commission.SalespersonID
		if id == "" {
			continue
		}
		totals[id] = totals[id].Add(l.TotalEstimatedValue)
		counts[id]++
	}
	if len(totals) == 0 {
		return NoPerformer
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best := ids[0]
	for _, id := range ids[1:] {
		if totals[id].GreaterThan(totals[best]) {
			best = id
		}
	}
	return Performer{
		SalespersonID: best,
		TotalValue:    totals[best],
		LeadCount:     counts[best],
		Found:         true,
	}
}

// PipelineValue sums the estimated value of leads that are still open
func PipelineValue(leads []*lead.Lead) decimal.Decimal {
	total := decimal.Zero
	for _, l := range leads {
		if !l.IsTerminal() {
			total = total.Add(l.TotalEstimatedValue)
		}
	}
	return total
}

// SourceStats aggregates the leads of one source type
type SourceStats struct {
	Source          lead.SourceType `json:"source"`
	Count           int             `json:"count"`
	Won             int             `json:"won"`
	Value           decimal.Decimal `json:"value"`
	AcquisitionCost decimal.Decimal `json:"acquisitionCost"`
	Commission      decimal.Decimal `json:"commission"`
	NetRevenue      decimal.Decimal `json:"netRevenue"`
}

// SourceBreakdown aggregates value, cost and net revenue per source, ordered by source name
func SourceBreakdown(leads []*lead.Lead) []SourceStats {
	bySource := make(map[lead.SourceType]*SourceStats)
	for _, l := range leads {
		stats, ok := bySource[l.Source.Type]
		if !ok {
			stats = &SourceStats{
				Source:          l.Source.Type,
				Value:           decimal.Zero,
				AcquisitionCost: decimal.Zero,
				Commission:      decimal.Zero,
				NetRevenue:      decimal.Zero,
			}
			bySource[l.Source.Type] = stats
		}
		b := lead.CalculateCommission(l)
		stats.Count++
		if l.IsWon() {
			stats.Won++
		}
		stats.Value = stats.Value.Add(b.BaseValue.Amount())
		stats.AcquisitionCost = stats.AcquisitionCost.Add(l.Source.AcquisitionCost)
		stats.Commission = stats.Commission.Add(b.TotalCommission.Amount())
		stats.NetRevenue = stats.NetRevenue.Add(b.NetRevenue.Amount())
	}

	out := make([]SourceStats, 0, len(bySource))
	for _, s := range bySource {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// DashboardStats bundles every dashboard figure. Counts and the conversion
// rate cover all leads; monetary figures cover only leads in Currency.
// ByCurrency shows how many leads each currency contributed.
type DashboardStats struct {
	TotalLeads      int                          `json:"totalLeads"`
	ByStatus        map[lead.Status]int          `json:"byStatus"`
	BySource        map[lead.SourceType]int      `json:"bySource"`
	ByCurrency      map[valueobject.Currency]int `json:"byCurrency"`
	ConversionRate  decimal.Decimal              `json:"conversionRate"`
	Revenue         decimal.Decimal              `json:"revenue"`
	CommissionTotal decimal.Decimal              `json:"commissionTotal"`
	PipelineValue   decimal.Decimal              `json:"pipelineValue"`
	TopPerformer    Performer                    `json:"topPerformer"`
	Sources         []SourceStats                `json:"sources"`
	Window          Window                       `json:"window"`
	Currency        valueobject.Currency         `json:"currency"`
	GeneratedAt     time.Time                    `json:"generatedAt"`
}

// BuildDashboard computes every figure over the snapshot
func BuildDashboard(leads []*lead.Lead, window Window, currency valueobject.Currency, now time.Time) DashboardStats {
	priced := ForCurrency(leads, currency)
	return DashboardStats{
		TotalLeads:      len(leads),
		ByStatus:        CountByStatus(leads),
		BySource:        CountBySource(leads),
		ByCurrency:      CountByCurrency(leads),
		ConversionRate:  ConversionRate(leads),
		Revenue:         RevenueInWindow(priced, window.Start, window.End),
		CommissionTotal: CommissionTotals(priced),
		PipelineValue:   PipelineValue(priced),
		TopPerformer:    TopPerformer(priced),
		Sources:         SourceBreakdown(priced),
		Window:          window,
		Currency:        currency,
		GeneratedAt:     now,
	}
}
