package report

import (
	"testing"
	"time"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type leadSpec struct {
	source      lead.SourceType
	salesperson string
	rate        string
	value       string
	path        []lead.Status
	finalValue  string
	cost        string
	currency    valueobject.Currency
}

func buildLead(t *testing.T, spec leadSpec) *lead.Lead {
	t.Helper()
	email, err := valueobject.NewEmail("kunde@example.de")
	require.NoError(t, err)

	params := lead.NewLeadParams{
		Contact: lead.Contact{
			FirstName: "Jonas",
			LastName:  "Weber",
			Email:     email,
			Address:   valueobject.MustNewAddress("Hamburg"),
		},
		Source:   lead.SourceAttribution{Type: spec.source, SourceID: "src-1"},
		Products: []lead.ProductInput{{Name: "PV", Category: lead.CategorySolar, EstimatedValue: d(spec.value)}},
		Currency: spec.currency,
		Now:      t0,
	}
	if spec.cost != "" {
		params.Source.AcquisitionCost = d(spec.cost)
	}
	if spec.salesperson != "" {
		params.Commission.SalespersonID = spec.salesperson
		if spec.rate != "" {
			r := d(spec.rate)
			params.Commission.SalespersonRate = &r
		}
	}
	l, err := lead.NewLead(params)
	require.NoError(t, err)

	now := t0
	for _, s := range spec.path {
		now = now.Add(24 * time.Hour)
		if s == lead.StatusClosedWon && spec.finalValue != "" {
			require.NoError(t, l.RecordFinalValue(l.Products[0].ID, d(spec.finalValue), "test", now))
		}
		_, err := l.Transition(s, "test", "", now)
		require.NoError(t, err)
	}
	return l
}

var wonPath = []lead.Status{
	lead.StatusContacted, lead.StatusQualified, lead.StatusProposalSent,
	lead.StatusNegotiation, lead.StatusContractSigned, lead.StatusClosedWon,
}

func TestEmptyInput(t *testing.T) {
	assert.True(t, ConversionRate(nil).IsZero())
	assert.True(t, ConversionRate([]*lead.Lead{}).IsZero())
	assert.Equal(t, NoPerformer, TopPerformer(nil))
	assert.False(t, TopPerformer(nil).Found)
	assert.Empty(t, CountByStatus(nil))
	assert.True(t, RevenueInWindow(nil, t0, t0.Add(time.Hour)).IsZero())
	assert.True(t, CommissionTotals(nil).IsZero())
	assert.Empty(t, SourceBreakdown(nil))

	stats := BuildDashboard(nil, Window{}, valueobject.EUR, t0)
	assert.Equal(t, 0, stats.TotalLeads)
	assert.False(t, stats.TopPerformer.Found)
}

func TestCountsAndConversion(t *testing.T) {
	leads := []*lead.Lead{
		buildLead(t, leadSpec{source: lead.SourcePurchased, value: "1000", path: []lead.Status{lead.StatusContacted}}),
		buildLead(t, leadSpec{source: lead.SourcePurchased, value: "1000"}),
		buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "1000", path: wonPath, finalValue: "900"}),
		buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "1000", path: []lead.Status{lead.StatusNotReachable, lead.StatusClosedLost}}),
	}

	byStatus := CountByStatus(leads)
	assert.Equal(t, 1, byStatus[lead.StatusContacted])
	assert.Equal(t, 1, byStatus[lead.StatusNew])
	assert.Equal(t, 1, byStatus[lead.StatusClosedWon])
	assert.Equal(t, 1, byStatus[lead.StatusClosedLost])

	bySource := CountBySource(leads)
	assert.Equal(t, 2, bySource[lead.SourcePurchased])
	assert.Equal(t, 2, bySource[lead.SourceAdvertising])

	assert.Equal(t, "25", ConversionRate(leads).String())
	assert.True(t, PipelineValue(leads).Equal(d("2000")))
}

func TestConversionRate_Rounding(t *testing.T) {
	leads := []*lead.Lead{
		buildLead(t, leadSpec{source: lead.SourcePurchased, value: "1", path: wonPath}),
		buildLead(t, leadSpec{source: lead.SourcePurchased, value: "1"}),
		buildLead(t, leadSpec{source: lead.SourcePurchased, value: "1"}),
	}
	assert.Equal(t, "33.33", ConversionRate(leads).StringFixed(2))
}

func TestRevenueInWindow(t *testing.T) {
	won := buildLead(t, leadSpec{source: lead.SourceSalesperson, value: "20000", path: wonPath, finalValue: "18000"})
	wonNoFinal := buildLead(t, leadSpec{source: lead.SourceSalesperson, value: "5000", path: wonPath})
	open := buildLead(t, leadSpec{source: lead.SourceSalesperson, value: "7000"})

	conversion := *won.ConversionDate
	leads := []*lead.Lead{won, wonNoFinal, open}

	assert.True(t, RevenueInWindow(leads, conversion, conversion.Add(time.Second)).Equal(d("18000")))
	assert.True(t, RevenueInWindow(leads, conversion.Add(-time.Hour), conversion).IsZero(), "end is exclusive")
	assert.True(t, RevenueInWindow(leads, t0, t0.Add(365*24*time.Hour)).Equal(d("18000")))
}

func TestCommissionTotals(t *testing.T) {
	leads := []*lead.Lead{
		buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-1", rate: "3.5", value: "20000"}),
		buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-2", rate: "2", value: "1000"}),
		buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "9999"}),
	}
	assert.True(t, CommissionTotals(leads).Equal(d("720")))
}

func TestTopPerformer(t *testing.T) {
	t.Run("highest value wins", func(t *testing.T) {
		leads := []*lead.Lead{
			buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-b", value: "5000"}),
			buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-b", value: "6000"}),
			buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-a", value: "10000"}),
			buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "50000"}),
		}
		p := TopPerformer(leads)
		require.True(t, p.Found)
		assert.Equal(t, "sp-b", p.SalespersonID)
		assert.True(t, p.TotalValue.Equal(d("11000")))
		assert.Equal(t, 2, p.LeadCount)
	})

	t.Run("ties go to the smallest id", func(t *testing.T) {
		leads := []*lead.Lead{
			buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-z", value: "5000"}),
			buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-m", value: "5000"}),
			buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-x", value: "5000"}),
		}
		assert.Equal(t, "sp-m", TopPerformer(leads).SalespersonID)
	})

	t.Run("no salesperson yields none", func(t *testing.T) {
		leads := []*lead.Lead{buildLead(t, leadSpec{source: lead.SourceRegistration, value: "1"})}
		assert.Equal(t, NoPerformer, TopPerformer(leads))
	})
}

func TestSourceBreakdown(t *testing.T) {
	leads := []*lead.Lead{
		buildLead(t, leadSpec{source: lead.SourcePurchased, salesperson: "sp-1", rate: "2.5", value: "10000", cost: "45"}),
		buildLead(t, leadSpec{source: lead.SourcePurchased, value: "2000", cost: "45", path: wonPath}),
		buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "3000"}),
	}

	stats := SourceBreakdown(leads)
	require.Len(t, stats, 2)
	assert.Equal(t, lead.SourceAdvertising, stats[0].Source)
	assert.Equal(t, lead.SourcePurchased, stats[1].Source)

	purchased := stats[1]
	assert.Equal(t, 2, purchased.Count)
	assert.Equal(t, 1, purchased.Won)
	assert.True(t, purchased.Value.Equal(d("12000")))
	assert.True(t, purchased.AcquisitionCost.Equal(d("90")))
	assert.True(t, purchased.Commission.Equal(d("250")))
	// 10000 - 250 - 45 + 2000 - 45
	assert.True(t, purchased.NetRevenue.Equal(d("11660")))
}

func TestBuildDashboard(t *testing.T) {
	won := buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-1", rate: "3.5", value: "20000", path: wonPath, finalValue: "20000"})
	open := buildLead(t, leadSpec{source: lead.SourceAffiliate, value: "4000"})
	leads := []*lead.Lead{won, open}

	window := Window{Start: t0, End: t0.AddDate(1, 0, 0)}
	stats := BuildDashboard(leads, window, valueobject.EUR, t0)

	assert.Equal(t, 2, stats.TotalLeads)
	assert.Equal(t, "50", stats.ConversionRate.String())
	assert.True(t, stats.Revenue.Equal(d("20000")))
	assert.True(t, stats.CommissionTotal.Equal(d("700")))
	assert.True(t, stats.PipelineValue.Equal(d("4000")))
	assert.Equal(t, "sp-1", stats.TopPerformer.SalespersonID)
	assert.Len(t, stats.Sources, 2)
	assert.Equal(t, window, stats.Window)
}

func TestBuildDashboard_MixedCurrencies(t *testing.T) {
	eur := buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-eur", rate: "3.5", value: "20000", path: wonPath, finalValue: "20000"})
	usd := buildLead(t, leadSpec{source: lead.SourceSalesperson, salesperson: "sp-usd", rate: "3.5", value: "20000", path: wonPath, finalValue: "20000", currency: valueobject.USD})
	openUSD := buildLead(t, leadSpec{source: lead.SourceAdvertising, salesperson: "sp-usd", value: "90000", currency: valueobject.USD})
	leads := []*lead.Lead{eur, usd, openUSD}

	stats := BuildDashboard(leads, Window{Start: t0, End: t0.AddDate(1, 0, 0)}, valueobject.EUR, t0)

	assert.Equal(t, 3, stats.TotalLeads)
	assert.Equal(t, map[valueobject.Currency]int{valueobject.EUR: 1, valueobject.USD: 2}, stats.ByCurrency)
	assert.True(t, stats.CommissionTotal.Equal(d("700")), stats.CommissionTotal.String())
	assert.True(t, stats.Revenue.Equal(d("20000")))
	assert.True(t, stats.PipelineValue.IsZero())
	assert.Equal(t, "sp-eur", stats.TopPerformer.SalespersonID)
	require.Len(t, stats.Sources, 1)
	assert.Equal(t, 1, stats.Sources[0].Count)

	usdStats := BuildDashboard(leads, Window{Start: t0, End: t0.AddDate(1, 0, 0)}, valueobject.USD, t0)
	assert.True(t, usdStats.CommissionTotal.Equal(d("700")))
	assert.True(t, usdStats.PipelineValue.Equal(d("90000")))
	assert.Equal(t, "sp-usd", usdStats.TopPerformer.SalespersonID)
}

func TestForCurrency(t *testing.T) {
	eur := buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "100"})
	chf := buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "100", currency: valueobject.CHF})
	legacy := buildLead(t, leadSpec{source: lead.SourceAdvertising, value: "100"})
	legacy.Currency = ""

	got := ForCurrency([]*lead.Lead{eur, chf, legacy}, valueobject.EUR)
	assert.Equal(t, []*lead.Lead{eur, legacy}, got)
	assert.Empty(t, ForCurrency(nil, valueobject.EUR))
}

func TestWindow(t *testing.T) {
	w := Window{Start: t0, End: t0.Add(time.Hour)}
	assert.True(t, w.Contains(t0))
	assert.False(t, w.Contains(t0.Add(time.Hour)))
	assert.False(t, w.Contains(t0.Add(-time.Nanosecond)))
	assert.True(t, Window{}.IsZero())
}
