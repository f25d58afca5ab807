package companies

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/crud"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
)

var table = crud.Table[Company]{
	Name:    "companies",
	Columns: []string{"id", "name", "email", "phone", "address", "created_at", "updated_at"},
	// The tenant root is scoped by its own primary key.
	TenantColumn: "id",
	Scan: func(rows pgx.Rows) (Company, error) {
		var c Company
		err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	},
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Find returns the company or nil when absent or soft-deleted.
func (r *Repository) Find(ctx context.Context, companyID int64) (*Company, error) {
	return table.FindByID(ctx, r.pool, companyID, companyID)
}

// Update applies the present fields and returns the updated row, or nil when
// the company was excluded by the predicate.
func (r *Repository) Update(ctx context.Context, companyID int64, set *query.SetBuilder) (*Company, error) {
	return table.Update(ctx, r.pool, companyID, companyID, set)
}
