package costing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/shared"
)

// CoefficientPlaces is the precision persisted for the distribution coefficient.
const CoefficientPlaces = 6

var (
	// ErrZeroSupplierValue is returned when the linked products carry no supplier value.
	ErrZeroSupplierValue = fmt.Errorf("costing: total supplier value is zero: %w", shared.ErrUnprocessable)
	// ErrDistributionBusy is returned when another distribution holds the shipment lock.
	ErrDistributionBusy = fmt.Errorf("costing: distribution already running for shipment: %w", shared.ErrConflict)
)

// Item is a product taking part in a distribution.
type Item struct {
	ProductID           string
	Name                string
	SupplierQuotedValue decimal.NullDecimal
	CurrentCost         decimal.Decimal
}

// Allocation is the cost assigned to one product.
type Allocation struct {
	ProductID           string          `json:"productId"`
	Name                string          `json:"name"`
	SupplierQuotedValue decimal.Decimal `json:"supplierQuotedValue"`
	PreviousCost        decimal.Decimal `json:"previousCost"`
	UnitAcquisitionCost decimal.Decimal `json:"unitAcquisitionCost"`
}

// Plan is the outcome of spreading a shipment's real cost over its products.
type Plan struct {
	TotalSupplierValue decimal.Decimal `json:"totalSupplierValue"`
	RealTotalCost      decimal.Decimal `json:"realTotalCost"`
	Coefficient        decimal.Decimal `json:"coefficient"`
	AllocatedTotal     decimal.Decimal `json:"allocatedTotal"`
	RoundingDifference decimal.Decimal `json:"roundingDifference"`
	Allocations        []Allocation    `json:"allocations"`
}

// Distribute weights realTotal by each item's supplier value. Every cost is
// rounded to a whole currency unit, half away from zero, so the allocated
// total differs from realTotal by at most 0.5 per item. Missing supplier
// values count as zero.
func Distribute(realTotal decimal.Decimal, items []Item) (Plan, error) {
	if realTotal.IsNegative() {
		return Plan{}, shared.NewValidationError("realTotalCost", "must be at least 0")
	}
	total := decimal.Zero
	for _, item := range items {
		value := supplierValue(item)
		if value.IsNegative() {
			return Plan{}, shared.NewValidationError("supplierQuotedValue", fmt.Sprintf("product %s must be at least 0", item.ProductID))
		}
		total = total.Add(value)
	}
	if total.IsZero() {
		return Plan{}, ErrZeroSupplierValue
	}

	plan := Plan{
		TotalSupplierValue: total,
		RealTotalCost:      realTotal,
		Coefficient:        realTotal.DivRound(total, CoefficientPlaces),
		AllocatedTotal:     decimal.Zero,
		Allocations:        make([]Allocation, 0, len(items)),
	}
	for _, item := range items {
		value := supplierValue(item)
		cost := value.Mul(realTotal).Div(total).Round(0)
		plan.Allocations = append(plan.Allocations, Allocation{
			ProductID:           item.ProductID,
			Name:                item.Name,
			SupplierQuotedValue: value,
			PreviousCost:        item.CurrentCost,
			UnitAcquisitionCost: cost,
		})
		plan.AllocatedTotal = plan.AllocatedTotal.Add(cost)
	}
	plan.RoundingDifference = plan.AllocatedTotal.Sub(realTotal)
	return plan, nil
}

// WithinTolerance reports whether the rounding drift respects 0.5 per allocation.
func (p Plan) WithinTolerance() bool {
	limit := decimal.NewFromFloat(0.5).Mul(decimal.NewFromInt(int64(len(p.Allocations))))
	return p.RoundingDifference.Abs().LessThanOrEqual(limit)
}

func supplierValue(item Item) decimal.Decimal {
	if !item.SupplierQuotedValue.Valid {
		return decimal.Zero
	}
	return item.SupplierQuotedValue.Decimal
}

// IsZeroSupplierValue reports whether err means nothing could be distributed.
func IsZeroSupplierValue(err error) bool {
	return errors.Is(err, ErrZeroSupplierValue)
}
