package core

import "github.com/shopspring/decimal"

// ValidateAmount checks that amount is positive money: strictly greater
// than zero with at most 2 fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrInvalidAmount
	}
	return nil
}
