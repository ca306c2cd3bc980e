package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/inventory"
)

// DefaultTopProducts is the size of the best-seller ranking.
const DefaultTopProducts = 7

// Filter bounds the movement records a report covers. To is exclusive.
type Filter struct {
	From time.Time
	To   time.Time
}

// Summary aggregates revenue, expenses and profit.
type Summary struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

// Totals are the raw sums behind a Summary.
type Totals struct {
	SalesRevenue   decimal.Decimal
	SalesProfit    decimal.Decimal
	SalesTransport decimal.Decimal
	Purchases      decimal.Decimal
	Shipments      decimal.Decimal
}

// Summary folds totals into revenue, expenses and profit. Expenses cover
// restocks, shipments including transport, and sale delivery costs.
func (t Totals) Summary() Summary {
	return Summary{
		Revenue:  t.SalesRevenue,
		Expenses: t.Purchases.Add(t.Shipments).Add(t.SalesTransport),
		Profit:   t.SalesProfit,
	}
}

// DailyAmount is one day's amount from a single source.
type DailyAmount struct {
	Day    time.Time
	Amount decimal.Decimal
}

// DailyPoint is one day of the sales versus expenses series.
type DailyPoint struct {
	Date     string          `json:"date"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
}

// TopProduct ranks products by quantity sold.
type TopProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ShipmentSales is the sales activity linked to one shipment.
type ShipmentSales struct {
	Shipment       inventory.Shipment
	Revenue        decimal.Decimal
	SalesTransport decimal.Decimal
	ItemsSold      int
}

// ShipmentStats is the performance of one shipment.
type ShipmentStats struct {
	ShipmentID         string                   `json:"shipmentId"`
	Name               string                   `json:"name"`
	Status             inventory.ShipmentStatus `json:"status"`
	Date               time.Time                `json:"date"`
	Revenue            decimal.Decimal          `json:"revenue"`
	Expenses           decimal.Decimal          `json:"expenses"`
	Profit             decimal.Decimal          `json:"profit"`
	ItemsSold          int                      `json:"itemsSold"`
	EstimatedItemCount int                      `json:"estimatedItemCount"`
	Progress           decimal.Decimal          `json:"progress"`
}

// ShipmentReport lists per-shipment stats with totals over active shipments.
type ShipmentReport struct {
	Shipments []ShipmentStats `json:"shipments"`
	Totals    Summary         `json:"totals"`
}

// Dashboard is the reports landing payload.
type Dashboard struct {
	Summary     Summary      `json:"summary"`
	Daily       []DailyPoint `json:"daily"`
	TopProducts []TopProduct `json:"topProducts"`
}

// SaleRow is one line of the sales export.
type SaleRow struct {
	Date          time.Time
	ProductName   string
	Quantity      int
	TotalPrice    decimal.Decimal
	TransportCost decimal.Decimal
	Profit        decimal.Decimal
	ShipmentName  string
}
