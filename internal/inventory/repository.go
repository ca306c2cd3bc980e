package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, id string) (Product, error)
	UpdateStock(ctx context.Context, productID string, onHand int, unitCost decimal.Decimal) error
	InsertSale(ctx context.Context, record SaleRecord) (SaleRecord, error)
	InsertPurchase(ctx context.Context, record PurchaseRecord) (PurchaseRecord, error)
	GetShipmentForUpdate(ctx context.Context, id string) (Shipment, error)
	LockShipmentProducts(ctx context.Context, shipmentID string) error
	DeleteShipmentSales(ctx context.Context, shipmentID string) (int, error)
	DeleteShipmentPurchases(ctx context.Context, shipmentID string) (int, error)
	DeleteShipmentProducts(ctx context.Context, shipmentID string) (int, error)
	DeleteShipment(ctx context.Context, shipmentID string) error
	DeleteAll(ctx context.Context) (ResetResult, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction. Rows are
// locked explicitly by the Get*ForUpdate calls.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const saleColumns = `id, product_id, product_name, quantity, unit_price, total_price, transport_cost, profit, sold_at, shipment_id`

const purchaseColumns = `id, product_id, product_name, quantity, unit_price, total_price, purchased_at, shipment_id`

// ListSales returns sale records, newest first.
func (r *Repository) ListSales(ctx context.Context, filter RecordFilter) ([]SaleRecord, int, error) {
	where, args := recordWhere(filter, "sold_at")
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sale_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + saleColumns + ` FROM sale_records` + where +
		` ORDER BY sold_at DESC, id LIMIT ` + strconv.Itoa(filter.Page.PerPage) + ` OFFSET ` + strconv.Itoa(filter.Page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	records := []SaleRecord{}
	for rows.Next() {
		rec, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// ListPurchases returns purchase records, newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter RecordFilter) ([]PurchaseRecord, int, error) {
	where, args := recordWhere(filter, "purchased_at")
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + purchaseColumns + ` FROM purchase_records` + where +
		` ORDER BY purchased_at DESC, id LIMIT ` + strconv.Itoa(filter.Page.PerPage) + ` OFFSET ` + strconv.Itoa(filter.Page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	records := []PurchaseRecord{}
	for rows.Next() {
		rec, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.tx.QueryRow(ctx, `SELECT id, name, on_hand_quantity, unit_sale_price, unit_acquisition_cost, supplier_quoted_value, shipment_id, image_url, created_at, updated_at
FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.OnHandQuantity, &p.UnitSalePrice, &p.UnitAcquisitionCost, &p.SupplierQuotedValue, &p.ShipmentID, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateStock(ctx context.Context, productID string, onHand int, unitCost decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET on_hand_quantity=$2, unit_acquisition_cost=$3, updated_at=NOW() WHERE id=$1`, productID, onHand, unitCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) InsertSale(ctx context.Context, rec SaleRecord) (SaleRecord, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_records (product_id, product_name, quantity, unit_price, total_price, transport_cost, profit, sold_at, shipment_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		rec.ProductID, rec.ProductName, rec.Quantity, rec.UnitPrice, rec.TotalPrice, rec.TransportCost, rec.Profit, rec.Date, rec.ShipmentID).Scan(&rec.ID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return SaleRecord{}, ErrShipmentNotFound
		}
		return SaleRecord{}, err
	}
	return rec, nil
}

func (r *txRepository) InsertPurchase(ctx context.Context, rec PurchaseRecord) (PurchaseRecord, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_records (product_id, product_name, quantity, unit_price, total_price, purchased_at, shipment_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		rec.ProductID, rec.ProductName, rec.Quantity, rec.UnitPrice, rec.TotalPrice, rec.Date, rec.ShipmentID).Scan(&rec.ID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return PurchaseRecord{}, ErrShipmentNotFound
		}
		return PurchaseRecord{}, err
	}
	return rec, nil
}

func (r *txRepository) GetShipmentForUpdate(ctx context.Context, id string) (Shipment, error) {
	s, err := ScanShipment(r.tx.QueryRow(ctx, `SELECT `+ShipmentColumns+` FROM shipments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrShipmentNotFound
		}
		return Shipment{}, err
	}
	return s, nil
}

func (r *txRepository) LockShipmentProducts(ctx context.Context, shipmentID string) error {
	_, err := r.tx.Exec(ctx, `SELECT id FROM products WHERE shipment_id=$1 ORDER BY id FOR UPDATE`, shipmentID)
	return err
}

func (r *txRepository) DeleteShipmentSales(ctx context.Context, shipmentID string) (int, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sale_records
WHERE shipment_id=$1 OR product_id IN (SELECT id FROM products WHERE shipment_id=$1)`, shipmentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *txRepository) DeleteShipmentPurchases(ctx context.Context, shipmentID string) (int, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM purchase_records
WHERE shipment_id=$1 OR product_id IN (SELECT id FROM products WHERE shipment_id=$1)`, shipmentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *txRepository) DeleteShipmentProducts(ctx context.Context, shipmentID string) (int, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM products WHERE shipment_id=$1`, shipmentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *txRepository) DeleteShipment(ctx context.Context, shipmentID string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM shipments WHERE id=$1`, shipmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func (r *txRepository) DeleteAll(ctx context.Context) (ResetResult, error) {
	var result ResetResult
	steps := []struct {
		table string
		count *int
	}{
		{"sale_records", &result.Sales},
		{"purchase_records", &result.Purchases},
		{"products", &result.Products},
		{"shipments", &result.Shipments},
	}
	for _, step := range steps {
		tag, err := r.tx.Exec(ctx, `DELETE FROM `+step.table)
		if err != nil {
			return ResetResult{}, fmt.Errorf("inventory: reset %s: %w", step.table, err)
		}
		*step.count = int(tag.RowsAffected())
	}
	return result, nil
}

// ShipmentColumns lists the shipments columns in ScanShipment order.
const ShipmentColumns = `id, name, shipment_date, total_acquisition_cost, transport_cost, estimated_item_count, status, distribution_coefficient, created_at`

// ScanShipment reads one row selected with ShipmentColumns.
func ScanShipment(row pgx.Row) (Shipment, error) {
	var s Shipment
	err := row.Scan(&s.ID, &s.Name, &s.Date, &s.TotalAcquisitionCost, &s.TransportCost, &s.EstimatedItemCount, &s.Status, &s.DistributionCoefficient, &s.CreatedAt)
	return s, err
}

func scanSale(row pgx.Row) (SaleRecord, error) {
	var rec SaleRecord
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.Quantity, &rec.UnitPrice, &rec.TotalPrice, &rec.TransportCost, &rec.Profit, &rec.Date, &rec.ShipmentID)
	return rec, err
}

func scanPurchase(row pgx.Row) (PurchaseRecord, error) {
	var rec PurchaseRecord
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.Quantity, &rec.UnitPrice, &rec.TotalPrice, &rec.Date, &rec.ShipmentID)
	return rec, err
}

func recordWhere(filter RecordFilter, dateColumn string) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.ShipmentID != "" {
		add("shipment_id = ?", filter.ShipmentID)
	}
	if filter.ProductID != "" {
		add("product_id = ?", filter.ProductID)
	}
	if !filter.From.IsZero() {
		add(dateColumn+" >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		add(dateColumn+" < ?", filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var _ RepositoryPort = (*Repository)(nil)
