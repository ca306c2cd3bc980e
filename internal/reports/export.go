package reports

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	salesSheet     = "Sales"
	shipmentsSheet = "Shipments"
)

// WriteWorkbook renders the reports as an XLSX workbook into w.
func WriteWorkbook(w io.Writer, dashboard Dashboard, shipments ShipmentReport, sales []SaleRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	summaryRows := [][]any{
		{"Metric", "Amount"},
		{"Revenue", money(dashboard.Summary.Revenue)},
		{"Expenses", money(dashboard.Summary.Expenses)},
		{"Profit", money(dashboard.Summary.Profit)},
		{},
		{"Date", "Sales", "Expenses"},
	}
	for _, p := range dashboard.Daily {
		summaryRows = append(summaryRows, []any{p.Date, money(p.Sales), money(p.Expenses)})
	}
	if err := writeRows(f, summarySheet, summaryRows); err != nil {
		return err
	}
	_ = f.SetCellStyle(summarySheet, "A1", "B1", header)
	_ = f.SetCellStyle(summarySheet, "A6", "C6", header)

	if _, err := f.NewSheet(salesSheet); err != nil {
		return err
	}
	salesRows := [][]any{{"Date", "Product", "Quantity", "Total", "Transport", "Profit", "Shipment"}}
	for _, s := range sales {
		salesRows = append(salesRows, []any{
			s.Date.UTC().Format("2006-01-02 15:04"), s.ProductName, s.Quantity,
			money(s.TotalPrice), money(s.TransportCost), money(s.Profit), s.ShipmentName,
		})
	}
	if err := writeRows(f, salesSheet, salesRows); err != nil {
		return err
	}
	_ = f.SetCellStyle(salesSheet, "A1", "G1", header)

	if _, err := f.NewSheet(shipmentsSheet); err != nil {
		return err
	}
	shipmentRows := [][]any{{"Shipment", "Date", "Status", "Revenue", "Expenses", "Profit", "Items sold", "Estimated", "Progress %"}}
	for _, s := range shipments.Shipments {
		shipmentRows = append(shipmentRows, []any{
			s.Name, s.Date.Format("2006-01-02"), string(s.Status),
			money(s.Revenue), money(s.Expenses), money(s.Profit),
			s.ItemsSold, s.EstimatedItemCount, money(s.Progress),
		})
	}
	shipmentRows = append(shipmentRows, []any{"Active total", "", "", money(shipments.Totals.Revenue), money(shipments.Totals.Expenses), money(shipments.Totals.Profit)})
	if err := writeRows(f, shipmentsSheet, shipmentRows); err != nil {
		return err
	}
	_ = f.SetCellStyle(shipmentsSheet, "A1", "I1", header)

	_, err = f.WriteTo(w)
	return err
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("reports: write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func money(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
