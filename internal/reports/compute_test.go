package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flaelle/flaelle/internal/inventory"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTotalsSummaryAddsAllExpenses(t *testing.T) {
	summary := Totals{
		SalesRevenue:   decimal.NewFromInt(25000),
		SalesProfit:    decimal.NewFromInt(7500),
		SalesTransport: decimal.NewFromInt(1000),
		Purchases:      decimal.NewFromInt(160000),
		Shipments:      decimal.NewFromInt(160000),
	}.Summary()
	require.Equal(t, "25000", summary.Revenue.String())
	require.Equal(t, "321000", summary.Expenses.String())
	require.Equal(t, "7500", summary.Profit.String())
}

func TestMergeDailySortsAndCombines(t *testing.T) {
	points := MergeDaily(
		[]DailyAmount{{Day: day("2026-03-02"), Amount: decimal.NewFromInt(5000)}, {Day: day("2025-12-31"), Amount: decimal.NewFromInt(100)}},
		[]DailyAmount{{Day: day("2026-03-02"), Amount: decimal.NewFromInt(300)}, {Day: day("2026-01-15"), Amount: decimal.NewFromInt(900)}},
	)
	require.Len(t, points, 3)
	require.Equal(t, "2025-12-31", points[0].Date)
	require.Equal(t, "2026-01-15", points[1].Date)
	require.True(t, points[1].Sales.IsZero())
	require.Equal(t, "2026-03-02", points[2].Date)
	require.Equal(t, "5000", points[2].Sales.String())
	require.Equal(t, "300", points[2].Expenses.String())
}

func TestRankProductsKeepsTopSeven(t *testing.T) {
	var in []TopProduct
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		in = append(in, TopProduct{Name: name, Quantity: i % 4})
	}
	out := RankProducts(in, DefaultTopProducts)
	require.Len(t, out, 7)
	require.Equal(t, TopProduct{Name: "d", Quantity: 3}, out[0])
	require.Equal(t, TopProduct{Name: "h", Quantity: 3}, out[1])
	require.Equal(t, TopProduct{Name: "a", Quantity: 0}, out[6])
}

func TestBuildShipmentReportExcludesArchivedFromTotals(t *testing.T) {
	active := inventory.Shipment{
		ID: "s1", Name: "Robes", Status: inventory.ShipmentActive,
		TotalAcquisitionCost: decimal.NewFromInt(150000),
		TransportCost:        decimal.NewNullDecimal(decimal.NewFromInt(10000)),
		EstimatedItemCount:   100,
	}
	archived := inventory.Shipment{
		ID: "s2", Name: "Jeans", Status: inventory.ShipmentArchived,
		TotalAcquisitionCost: decimal.NewFromInt(50000),
		EstimatedItemCount:   0,
	}
	report := BuildShipmentReport([]ShipmentSales{
		{Shipment: active, Revenue: decimal.NewFromInt(90000), SalesTransport: decimal.NewFromInt(1500), ItemsSold: 33},
		{Shipment: archived, Revenue: decimal.NewFromInt(70000), SalesTransport: decimal.Zero, ItemsSold: 12},
	})

	require.Len(t, report.Shipments, 2)
	first := report.Shipments[0]
	require.Equal(t, "161500", first.Expenses.String())
	require.Equal(t, "-71500", first.Profit.String())
	require.Equal(t, "33", first.Progress.String())
	require.True(t, report.Shipments[1].Progress.IsZero())
	require.Equal(t, "20000", report.Shipments[1].Profit.String())

	require.Equal(t, "90000", report.Totals.Revenue.String())
	require.Equal(t, "161500", report.Totals.Expenses.String())
	require.Equal(t, "-71500", report.Totals.Profit.String())
}

func TestBuildShipmentReportCountsSaleDeliveryCosts(t *testing.T) {
	shipment := inventory.Shipment{
		ID: "s1", Name: "Lot", Status: inventory.ShipmentActive,
		TotalAcquisitionCost: decimal.NewFromInt(1000),
	}
	report := BuildShipmentReport([]ShipmentSales{
		{Shipment: shipment, Revenue: decimal.NewFromInt(500), SalesTransport: decimal.NewFromInt(100), ItemsSold: 1},
	})

	require.Equal(t, "1100", report.Shipments[0].Expenses.String())
	require.Equal(t, "-600", report.Shipments[0].Profit.String())
}
