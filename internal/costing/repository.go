package costing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/platform/db"
)

// Repository persists distributions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("costing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetShipmentForUpdate(ctx context.Context, id string) (inventory.Shipment, error) {
	s, err := inventory.ScanShipment(r.tx.QueryRow(ctx, `SELECT `+inventory.ShipmentColumns+` FROM shipments WHERE id=$1 FOR NO KEY UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Shipment{}, inventory.ErrShipmentNotFound
		}
		return inventory.Shipment{}, err
	}
	return s, nil
}

// LockShipmentItems locks the shipment's products in id order.
func (r *txRepository) LockShipmentItems(ctx context.Context, shipmentID string) ([]Item, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, supplier_quoted_value, unit_acquisition_cost
FROM products WHERE shipment_id=$1 ORDER BY id FOR NO KEY UPDATE`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.Name, &item.SupplierQuotedValue, &item.CurrentCost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) UpdateProductCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET unit_acquisition_cost=$2, updated_at=NOW() WHERE id=$1`, productID, cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

func (r *txRepository) SetCoefficient(ctx context.Context, shipmentID string, coefficient decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE shipments SET distribution_coefficient=$2 WHERE id=$1`, shipmentID, coefficient)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrShipmentNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
