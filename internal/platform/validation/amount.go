package validation

import (
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/shared"
)

// Amounts collects scale problems for money fields stored as NUMERIC(14,2).
type Amounts struct {
	problems shared.ValidationError
}

// Cents flags field when d carries more than two decimal places.
func (a *Amounts) Cents(field string, d decimal.Decimal) *Amounts {
	if !d.Equal(d.Round(2)) {
		a.problems.Add(field, "must have at most 2 decimal places")
	}
	return a
}

// NullCents is Cents for optional amounts.
func (a *Amounts) NullCents(field string, d decimal.NullDecimal) *Amounts {
	if d.Valid {
		a.Cents(field, d.Decimal)
	}
	return a
}

// Err returns the collected problems, or nil.
func (a *Amounts) Err() error {
	return a.problems.OrNil()
}
