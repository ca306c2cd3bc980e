package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/platform/db"
)

// Repository persists products and shipments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, on_hand_quantity, unit_sale_price, unit_acquisition_cost, supplier_quoted_value, shipment_id, image_url, created_at, updated_at`

func scanProduct(row pgx.Row) (inventory.Product, error) {
	var p inventory.Product
	err := row.Scan(&p.ID, &p.Name, &p.OnHandQuantity, &p.UnitSalePrice, &p.UnitAcquisitionCost, &p.SupplierQuotedValue, &p.ShipmentID, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProducts returns products ordered by name.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]inventory.Product, int, error) {
	var clauses []string
	var args []any
	if filter.ShipmentID != "" {
		args = append(args, filter.ShipmentID)
		clauses = append(clauses, `shipment_id = $`+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clauses = append(clauses, `name ILIKE $`+strconv.Itoa(len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY name, id LIMIT ` + strconv.Itoa(filter.Page.PerPage) + ` OFFSET ` + strconv.Itoa(filter.Page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	products := []inventory.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// GetProduct loads one product.
func (r *Repository) GetProduct(ctx context.Context, id string) (inventory.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Product{}, inventory.ErrProductNotFound
		}
		return inventory.Product{}, err
	}
	return p, nil
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, in ProductInput) (inventory.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `INSERT INTO products (name, on_hand_quantity, unit_sale_price, unit_acquisition_cost, supplier_quoted_value, shipment_id, image_url)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+productColumns,
		in.Name, in.OnHandQuantity, in.UnitSalePrice, in.UnitAcquisitionCost, in.SupplierQuotedValue, in.ShipmentID, in.ImageURL))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return inventory.Product{}, inventory.ErrShipmentNotFound
		}
		return inventory.Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces the descriptive fields of a product.
func (r *Repository) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (inventory.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products
SET name=$2, unit_sale_price=$3, supplier_quoted_value=$4, shipment_id=$5, image_url=$6, updated_at=NOW()
WHERE id=$1 RETURNING `+productColumns,
		id, in.Name, in.UnitSalePrice, in.SupplierQuotedValue, in.ShipmentID, in.ImageURL))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return inventory.Product{}, inventory.ErrProductNotFound
		case db.IsForeignKeyViolation(err):
			return inventory.Product{}, inventory.ErrShipmentNotFound
		}
		return inventory.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product without movement records.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return inventory.ErrProductInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

// ListShipments returns shipments, most recent first.
func (r *Repository) ListShipments(ctx context.Context, filter ShipmentFilter) ([]inventory.Shipment, int, error) {
	where := ""
	var args []any
	if filter.Status != "" {
		where = ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + inventory.ShipmentColumns + ` FROM shipments` + where +
		` ORDER BY shipment_date DESC, created_at DESC LIMIT ` + strconv.Itoa(filter.Page.PerPage) + ` OFFSET ` + strconv.Itoa(filter.Page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	shipments := []inventory.Shipment{}
	for rows.Next() {
		s, err := inventory.ScanShipment(rows)
		if err != nil {
			return nil, 0, err
		}
		shipments = append(shipments, s)
	}
	return shipments, total, rows.Err()
}

// GetShipment loads one shipment.
func (r *Repository) GetShipment(ctx context.Context, id string) (inventory.Shipment, error) {
	s, err := inventory.ScanShipment(r.pool.QueryRow(ctx, `SELECT `+inventory.ShipmentColumns+` FROM shipments WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Shipment{}, inventory.ErrShipmentNotFound
		}
		return inventory.Shipment{}, err
	}
	return s, nil
}

// CreateShipment inserts a shipment.
func (r *Repository) CreateShipment(ctx context.Context, in ShipmentInput, date time.Time) (inventory.Shipment, error) {
	return inventory.ScanShipment(r.pool.QueryRow(ctx, `INSERT INTO shipments (name, shipment_date, total_acquisition_cost, transport_cost, estimated_item_count, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+inventory.ShipmentColumns,
		in.Name, date, in.TotalAcquisitionCost, in.TransportCost, in.EstimatedItemCount, string(in.Status)))
}

// UpdateShipment replaces a shipment's descriptive fields. Costs and the
// distribution coefficient are left alone.
func (r *Repository) UpdateShipment(ctx context.Context, id string, in ShipmentUpdate, date time.Time) (inventory.Shipment, error) {
	s, err := inventory.ScanShipment(r.pool.QueryRow(ctx, `UPDATE shipments
SET name=$2, shipment_date=$3, estimated_item_count=$4, status=$5
WHERE id=$1 RETURNING `+inventory.ShipmentColumns,
		id, in.Name, date, in.EstimatedItemCount, string(in.Status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Shipment{}, inventory.ErrShipmentNotFound
		}
		return inventory.Shipment{}, err
	}
	return s, nil
}

// SetShipmentStatus changes only the status column.
func (r *Repository) SetShipmentStatus(ctx context.Context, id string, status inventory.ShipmentStatus) (inventory.Shipment, error) {
	s, err := inventory.ScanShipment(r.pool.QueryRow(ctx, `UPDATE shipments SET status=$2 WHERE id=$1 RETURNING `+inventory.ShipmentColumns, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Shipment{}, inventory.ErrShipmentNotFound
		}
		return inventory.Shipment{}, err
	}
	return s, nil
}

var _ RepositoryPort = (*Repository)(nil)
