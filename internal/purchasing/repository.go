package purchasing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads product pricing with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CatalogItems returns the requested products. Unknown ids are skipped.
func (r *Repository) CatalogItems(ctx context.Context, ids []string) ([]CatalogItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, unit_acquisition_cost FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[CatalogItem])
}

var _ RepositoryPort = (*Repository)(nil)
