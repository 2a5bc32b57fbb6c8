package lead

import (
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Storage bounds for monetary amounts and rates, matching DECIMAL(18,4) and
// DECIMAL(7,4) columns.
const (
	AmountScale         int32 = 4
	AmountIntegerDigits int32 = 14
)

var maxAmount = decimal.New(1, AmountIntegerDigits)

// validateAmount rejects amounts that are negative or that a stored column
// would round or overflow.
func validateAmount(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return shared.NewValidationError("%s cannot be negative", field)
	}
	if exceedsScale(v) {
		return shared.NewValidationError("%s cannot have more than %d decimal places", field, AmountScale)
	}
	if !v.LessThan(maxAmount) {
		return shared.NewValidationError("%s must be below %s", field, maxAmount.String())
	}
	return nil
}

// exceedsScale ignores trailing zeros, so 1.50000 fits
func exceedsScale(v decimal.Decimal) bool {
	return !v.Equal(v.Truncate(AmountScale))
}
