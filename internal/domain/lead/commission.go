package lead

import (
	"time"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CommissionTerms holds the commission agreement and settlement state of a lead
type CommissionTerms struct {
	SalespersonID      string
	SalespersonRate    *decimal.Decimal
	AffiliateID        string
	AffiliateRate      *decimal.Decimal
	LeadCost           *decimal.Decimal
	TotalCommissionDue *decimal.Decimal
	CommissionPaid     bool
	PaymentDate        *time.Time
}

// Validate rejects rates outside 0..100% and amounts that cannot be stored exactly
func (c CommissionTerms) Validate() error {
	if err := validateRate("Salesperson rate", c.SalespersonRate); err != nil {
		return err
	}
	if err := validateRate("Affiliate rate", c.AffiliateRate); err != nil {
		return err
	}
	if c.LeadCost != nil {
		return validateAmount("Lead cost", *c.LeadCost)
	}
	return nil
}

func validateRate(field string, rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() {
		return shared.NewValidationError("%s cannot be negative", field)
	}
	if rate.GreaterThan(hundred) {
		return shared.NewValidationError("%s cannot exceed 100%%", field)
	}
	if exceedsScale(*rate) {
		return shared.NewValidationError("%s cannot have more than %d decimal places", field, AmountScale)
	}
	return nil
}

func (c CommissionTerms) clone() CommissionTerms {
	out := c
	out.SalespersonRate = copyDecimal(c.SalespersonRate)
	out.AffiliateRate = copyDecimal(c.AffiliateRate)
	out.LeadCost = copyDecimal(c.LeadCost)
	out.TotalCommissionDue = copyDecimal(c.TotalCommissionDue)
	if c.PaymentDate != nil {
		t := *c.PaymentDate
		out.PaymentDate = &t
	}
	return out
}

// CommissionBreakdown is the result of CalculateCommission
type CommissionBreakdown struct {
	BaseValue           valueobject.Money    `json:"baseValue"`
	SalesCommission     valueobject.Money    `json:"salesCommission"`
	AffiliateCommission valueobject.Money    `json:"affiliateCommission"`
	TotalCommission     valueobject.Money    `json:"totalCommission"`
	NetRevenue          valueobject.Money    `json:"netRevenue"`
	Currency            valueobject.Currency `json:"currency"`
}

// MinorUnitBreakdown reports a breakdown in minor units
type MinorUnitBreakdown struct {
	BaseValue           int64  `json:"baseValue"`
	SalesCommission     int64  `json:"salesCommission"`
	AffiliateCommission int64  `json:"affiliateCommission"`
	TotalCommission     int64  `json:"totalCommission"`
	NetRevenue          int64  `json:"netRevenue"`
	Currency            string `json:"currency"`
	// Places is the number of decimals one minor unit shifts, 0 for JPY
	Places int32 `json:"places"`
}

// MinorUnits converts every figure to minor units of the breakdown's currency
func (b CommissionBreakdown) MinorUnits() MinorUnitBreakdown {
	return MinorUnitBreakdown{
		BaseValue:           b.BaseValue.MinorUnits(),
		SalesCommission:     b.SalesCommission.MinorUnits(),
		AffiliateCommission: b.AffiliateCommission.MinorUnits(),
		TotalCommission:     b.TotalCommission.MinorUnits(),
		NetRevenue:          b.NetRevenue.MinorUnits(),
		Currency:            string(b.Currency),
		Places:              b.Currency.MinorUnitPlaces(),
	}
}

// CalculateCommission computes salesperson and affiliate commission and net
// revenue of a lead. The final value is used when every line item has one,
// the estimated value otherwise. Commissions are rounded half-to-even to the
// minor unit before they are summed. The lead is never modified.
func CalculateCommission(l *Lead) CommissionBreakdown {
	currency := l.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	value := l.TotalEstimatedValue
	if l.TotalFinalValue != nil {
		value = *l.TotalFinalValue
	}
	base := mustMoney(value, currency)
	zero := valueobject.Zero(currency)
	if value.IsZero() {
		return CommissionBreakdown{
			BaseValue:           zero,
			SalesCommission:     zero,
			AffiliateCommission: zero,
			TotalCommission:     zero,
			NetRevenue:          zero,
			Currency:            currency,
		}
	}

	sales := zero
	if l.Commission.SalespersonRate != nil {
		sales = base.CalculatePercentage(*l.Commission.SalespersonRate).RoundMinor()
	}
	affiliate := zero
	if l.Commission.AffiliateRate != nil {
		affiliate = base.CalculatePercentage(*l.Commission.AffiliateRate).RoundMinor()
	}
	leadCost := zero
	if l.Commission.LeadCost != nil {
		leadCost = mustMoney(*l.Commission.LeadCost, currency).RoundMinor()
	}

	total := sales.MustAdd(affiliate)
	net := base.RoundMinor().MustSubtract(total).MustSubtract(leadCost)

	return CommissionBreakdown{
		BaseValue:           base.RoundMinor(),
		SalesCommission:     sales,
		AffiliateCommission: affiliate,
		TotalCommission:     total,
		NetRevenue:          net,
		Currency:            currency,
	}
}

func mustMoney(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	m, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
