package costing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flaelle/flaelle/internal/shared"
)

func value(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestDistributeSplitsRealCostByValue(t *testing.T) {
	plan, err := Distribute(decimal.NewFromInt(160000), []Item{
		{ProductID: "a", SupplierQuotedValue: value(800)},
		{ProductID: "b", SupplierQuotedValue: value(1500)},
	})
	require.NoError(t, err)

	require.Equal(t, "2300", plan.TotalSupplierValue.String())
	require.Equal(t, "69.565217", plan.Coefficient.String())
	require.Len(t, plan.Allocations, 2)
	require.Equal(t, "55652", plan.Allocations[0].UnitAcquisitionCost.String())
	require.Equal(t, "104348", plan.Allocations[1].UnitAcquisitionCost.String())
	require.Equal(t, "160000", plan.AllocatedTotal.String())
	require.True(t, plan.RoundingDifference.IsZero())
}

func TestDistributeRoundsHalfAwayFromZero(t *testing.T) {
	plan, err := Distribute(decimal.NewFromInt(1), []Item{
		{ProductID: "a", SupplierQuotedValue: value(1)},
		{ProductID: "b", SupplierQuotedValue: value(1)},
	})
	require.NoError(t, err)
	require.Equal(t, "1", plan.Allocations[0].UnitAcquisitionCost.String())
	require.Equal(t, "1", plan.Allocations[1].UnitAcquisitionCost.String())
	require.Equal(t, "1", plan.RoundingDifference.String())
	require.True(t, plan.WithinTolerance())
}

func TestDistributeStaysWithinRoundingTolerance(t *testing.T) {
	cases := []struct {
		name   string
		total  int64
		values []int64
	}{
		{name: "thirds", total: 100, values: []int64{1, 1, 1}},
		{name: "uneven", total: 987654, values: []int64{3, 7, 11, 13, 17, 19}},
		{name: "single", total: 4999, values: []int64{250}},
		{name: "many small", total: 10, values: []int64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := make([]Item, 0, len(tc.values))
			for i, v := range tc.values {
				items = append(items, Item{ProductID: string(rune('a' + i)), SupplierQuotedValue: value(v)})
			}
			plan, err := Distribute(decimal.NewFromInt(tc.total), items)
			require.NoError(t, err)
			require.True(t, plan.WithinTolerance(), "difference %s over %d items", plan.RoundingDifference, len(items))
			for _, alloc := range plan.Allocations {
				require.True(t, alloc.UnitAcquisitionCost.Equal(alloc.UnitAcquisitionCost.Round(0)))
			}
		})
	}
}

func TestDistributeTreatsMissingValueAsZero(t *testing.T) {
	plan, err := Distribute(decimal.NewFromInt(5000), []Item{
		{ProductID: "a", SupplierQuotedValue: value(10)},
		{ProductID: "b"},
	})
	require.NoError(t, err)
	require.Equal(t, "5000", plan.Allocations[0].UnitAcquisitionCost.String())
	require.True(t, plan.Allocations[1].UnitAcquisitionCost.IsZero())
}

func TestDistributeFailsOnZeroSupplierValue(t *testing.T) {
	_, err := Distribute(decimal.NewFromInt(5000), nil)
	require.ErrorIs(t, err, ErrZeroSupplierValue)
	require.ErrorIs(t, err, shared.ErrUnprocessable)

	_, err = Distribute(decimal.NewFromInt(5000), []Item{{ProductID: "a"}, {ProductID: "b", SupplierQuotedValue: value(0)}})
	require.True(t, IsZeroSupplierValue(err))
}

func TestDistributeRejectsNegativeInputs(t *testing.T) {
	_, err := Distribute(decimal.NewFromInt(-1), []Item{{ProductID: "a", SupplierQuotedValue: value(1)}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = Distribute(decimal.NewFromInt(10), []Item{{ProductID: "a", SupplierQuotedValue: value(-4)}, {ProductID: "b", SupplierQuotedValue: value(8)}})
	require.ErrorIs(t, err, shared.ErrValidation)
}
