package reports

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Totals sums sales, purchases and shipments within the filter.
func (r *Repository) Totals(ctx context.Context, filter Filter) (Totals, error) {
	t := Totals{}
	salesWhere, salesArgs := rangeWhere(filter, "sold_at")
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_price),0), COALESCE(SUM(profit),0), COALESCE(SUM(transport_cost),0)
FROM sale_records`+salesWhere, salesArgs...).Scan(&t.SalesRevenue, &t.SalesProfit, &t.SalesTransport)
	if err != nil {
		return Totals{}, err
	}
	purchaseWhere, purchaseArgs := rangeWhere(filter, "purchased_at")
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_price),0) FROM purchase_records`+purchaseWhere, purchaseArgs...).Scan(&t.Purchases); err != nil {
		return Totals{}, err
	}
	shipmentWhere, shipmentArgs := rangeWhere(filter, "shipment_date")
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_acquisition_cost + COALESCE(transport_cost,0)),0) FROM shipments`+shipmentWhere, shipmentArgs...).Scan(&t.Shipments); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// DailySales sums sale revenue per calendar day.
func (r *Repository) DailySales(ctx context.Context, filter Filter) ([]DailyAmount, error) {
	where, args := rangeWhere(filter, "sold_at")
	return r.daily(ctx, `SELECT date_trunc('day', sold_at AT TIME ZONE 'UTC')::date, SUM(total_price)
FROM sale_records`+where+` GROUP BY 1 ORDER BY 1`, args)
}

// DailyExpenses sums restocks and shipment costs per calendar day.
func (r *Repository) DailyExpenses(ctx context.Context, filter Filter) ([]DailyAmount, error) {
	purchaseWhere, args := rangeWhere(filter, "purchased_at")
	shipmentWhere, shipmentArgs := rangeWhereFrom(filter, "shipment_date", len(args))
	args = append(args, shipmentArgs...)
	return r.daily(ctx, `SELECT day, SUM(amount) FROM (
	SELECT date_trunc('day', purchased_at AT TIME ZONE 'UTC')::date AS day, total_price AS amount FROM purchase_records`+purchaseWhere+`
	UNION ALL
	SELECT shipment_date AS day, total_acquisition_cost + COALESCE(transport_cost,0) AS amount FROM shipments`+shipmentWhere+`
) e GROUP BY day ORDER BY day`, args)
}

func (r *Repository) daily(ctx context.Context, query string, args []any) ([]DailyAmount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyAmount
	for rows.Next() {
		var a DailyAmount
		if err := rows.Scan(&a.Day, &a.Amount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TopProducts ranks product names by quantity sold.
func (r *Repository) TopProducts(ctx context.Context, filter Filter, limit int) ([]TopProduct, error) {
	where, args := rangeWhere(filter, "sold_at")
	rows, err := r.pool.Query(ctx, `SELECT product_name, SUM(quantity)::int FROM sale_records`+where+`
GROUP BY product_name ORDER BY 2 DESC, 1 LIMIT `+strconv.Itoa(limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProduct
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.Name, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ShipmentSales joins every shipment with the sales attributed to it.
func (r *Repository) ShipmentSales(ctx context.Context) ([]ShipmentSales, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.name, s.shipment_date, s.total_acquisition_cost, s.transport_cost, s.estimated_item_count, s.status, s.distribution_coefficient, s.created_at,
	COALESCE(SUM(sr.total_price),0), COALESCE(SUM(sr.transport_cost),0), COALESCE(SUM(sr.quantity),0)::int
FROM shipments s
LEFT JOIN sale_records sr ON sr.shipment_id = s.id
GROUP BY s.id
ORDER BY s.shipment_date DESC, s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShipmentSales
	for rows.Next() {
		var row ShipmentSales
		s := &row.Shipment
		if err := rows.Scan(&s.ID, &s.Name, &s.Date, &s.TotalAcquisitionCost, &s.TransportCost, &s.EstimatedItemCount, &s.Status, &s.DistributionCoefficient, &s.CreatedAt,
			&row.Revenue, &row.SalesTransport, &row.ItemsSold); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SaleRows lists sales for export, oldest first.
func (r *Repository) SaleRows(ctx context.Context, filter Filter) ([]SaleRow, error) {
	where, args := rangeWhere(filter, "sr.sold_at")
	rows, err := r.pool.Query(ctx, `SELECT sr.sold_at, sr.product_name, sr.quantity, sr.total_price, COALESCE(sr.transport_cost,0), sr.profit, COALESCE(s.name,'')
FROM sale_records sr LEFT JOIN shipments s ON s.id = sr.shipment_id`+where+`
ORDER BY sr.sold_at, sr.id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SaleRow, error) {
		var s SaleRow
		err := row.Scan(&s.Date, &s.ProductName, &s.Quantity, &s.TotalPrice, &s.TransportCost, &s.Profit, &s.ShipmentName)
		return s, err
	})
}

func rangeWhere(filter Filter, column string) (string, []any) {
	return rangeWhereFrom(filter, column, 0)
}

// rangeWhereFrom numbers placeholders after offset existing arguments.
func rangeWhereFrom(filter Filter, column string, offset int) (string, []any) {
	var clauses []string
	var args []any
	add := func(op string, v time.Time) {
		args = append(args, v)
		clauses = append(clauses, column+" "+op+" $"+strconv.Itoa(offset+len(args)))
	}
	if !filter.From.IsZero() {
		add(">=", filter.From)
	}
	if !filter.To.IsZero() {
		add("<", filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var _ RepositoryPort = (*Repository)(nil)
