package models

import (
	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/errs"
)

// MoneyPlaces is the number of fractional digits carried by every monetary value.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds to two places, halves away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// PercentOff returns amount × (1 − pct/100) rounded half-up to two places.
// The product is computed exactly before the single rounding step.
func PercentOff(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(hundred.Sub(pct)).DivRound(hundred, MoneyPlaces)
}

// CheckMoney reports a validation error when d is negative or carries more
// than two fractional digits.
func CheckMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return errs.Validationf("%s must be non-negative, got %s", field, d.String())
	}
	if !d.Equal(Round2(d)) {
		return errs.Validationf("%s must have at most %d fractional digits, got %s", field, MoneyPlaces, d.String())
	}
	return nil
}

// OrZero returns the wrapped value or zero when it is absent.
func OrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
