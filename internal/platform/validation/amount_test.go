package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flaelle/flaelle/internal/shared"
)

func TestAmountsCents(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"1038.96", true},
		{"1038.960", true},
		{"150000", true},
		{"0.5", true},
		{"1038.961", false},
		{"0.001", false},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			var amounts Amounts
			err := amounts.Cents("unitCost", decimal.RequireFromString(tc.value)).Err()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "must have at most 2 decimal places", verr.Fields["unitCost"])
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestAmountsNullCentsSkipsMissing(t *testing.T) {
	var amounts Amounts
	require.NoError(t, amounts.NullCents("transportCost", decimal.NullDecimal{}).Err())

	err := amounts.NullCents("transportCost", decimal.NewNullDecimal(decimal.RequireFromString("12.345"))).Err()
	require.ErrorIs(t, err, shared.ErrValidation)
}
