package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/inventory"
)

var hundred = decimal.NewFromInt(100)

// MergeDaily combines per-day sales and expenses into one series sorted by date.
func MergeDaily(sales, expenses []DailyAmount) []DailyPoint {
	byDay := map[string]*DailyPoint{}
	point := func(a DailyAmount) *DailyPoint {
		key := a.Day.UTC().Format("2006-01-02")
		p, ok := byDay[key]
		if !ok {
			p = &DailyPoint{Date: key, Sales: decimal.Zero, Expenses: decimal.Zero}
			byDay[key] = p
		}
		return p
	}
	for _, a := range sales {
		p := point(a)
		p.Sales = p.Sales.Add(a.Amount)
	}
	for _, a := range expenses {
		p := point(a)
		p.Expenses = p.Expenses.Add(a.Amount)
	}
	out := make([]DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// RankProducts orders products by quantity sold, then name, keeping the first limit.
func RankProducts(products []TopProduct, limit int) []TopProduct {
	out := append([]TopProduct(nil), products...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BuildShipmentReport derives stats per shipment. Expenses are the shipment's
// real cost plus the delivery costs of its sales. Archived shipments are
// listed but left out of the totals.
func BuildShipmentReport(rows []ShipmentSales) ShipmentReport {
	report := ShipmentReport{
		Shipments: make([]ShipmentStats, 0, len(rows)),
		Totals:    Summary{Revenue: decimal.Zero, Expenses: decimal.Zero, Profit: decimal.Zero},
	}
	for _, row := range rows {
		s := row.Shipment
		expenses := s.RealTotalCost().Add(row.SalesTransport)
		stats := ShipmentStats{
			ShipmentID:         s.ID,
			Name:               s.Name,
			Status:             s.Status,
			Date:               s.Date,
			Revenue:            row.Revenue,
			Expenses:           expenses,
			Profit:             row.Revenue.Sub(expenses),
			ItemsSold:          row.ItemsSold,
			EstimatedItemCount: s.EstimatedItemCount,
			Progress:           progress(row.ItemsSold, s.EstimatedItemCount),
		}
		report.Shipments = append(report.Shipments, stats)
		if s.Status == inventory.ShipmentArchived {
			continue
		}
		report.Totals.Revenue = report.Totals.Revenue.Add(stats.Revenue)
		report.Totals.Expenses = report.Totals.Expenses.Add(stats.Expenses)
		report.Totals.Profit = report.Totals.Profit.Add(stats.Profit)
	}
	return report
}

func progress(sold, estimated int) decimal.Decimal {
	if estimated <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(sold)).Mul(hundred).DivRound(decimal.NewFromInt(int64(estimated)), 1)
}
